package openstack

import (
	"context"
	"io"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/imagedata"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
)

type imageStorage struct {
	sc *gophercloud.ServiceClient
}

var _ osapi.ImageStorage = (*imageStorage)(nil)

func (g *imageStorage) GetImage(ctx context.Context, id string) (*osapi.Image, error) {
	img, err := images.Get(ctx, g.sc, id).Extract()
	if err != nil {
		return nil, err
	}
	return &osapi.Image{ID: img.ID, Name: img.Name, SizeBytes: img.SizeBytes}, nil
}

// DownloadImage opens the payload stream. The total length comes from the
// image record; Glance does not always set Content-Length on the data call.
func (g *imageStorage) DownloadImage(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	img, err := images.Get(ctx, g.sc, id).Extract()
	if err != nil {
		return nil, 0, err
	}
	body, err := imagedata.Download(ctx, g.sc, id).Extract()
	if err != nil {
		return nil, 0, err
	}
	rc, ok := body.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(body)
	}
	return rc, img.SizeBytes, nil
}

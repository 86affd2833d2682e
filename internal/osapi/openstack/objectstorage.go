package openstack

import (
	"context"
	"io"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/objectstorage/v1/accounts"
	"github.com/gophercloud/gophercloud/v2/openstack/objectstorage/v1/containers"
	"github.com/gophercloud/gophercloud/v2/openstack/objectstorage/v1/objects"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
)

type objectStorage struct {
	sc *gophercloud.ServiceClient
}

var _ osapi.ObjectStorage = (*objectStorage)(nil)

func (o *objectStorage) GetAccount(ctx context.Context) (*osapi.Account, error) {
	h, err := accounts.Get(ctx, o.sc, nil).Extract()
	if err != nil {
		return nil, err
	}
	return &osapi.Account{
		Containers: h.ContainerCount,
		Objects:    h.ObjectCount,
		Bytes:      h.BytesUsed,
	}, nil
}

func (o *objectStorage) GetContainer(ctx context.Context, name string) (*osapi.Container, error) {
	h, err := containers.Get(ctx, o.sc, name, nil).Extract()
	if err != nil {
		return nil, err
	}
	return &osapi.Container{
		Name:    name,
		Objects: h.ObjectCount,
		Bytes:   h.BytesUsed,
	}, nil
}

func (o *objectStorage) GetObject(ctx context.Context, container, name string) (io.ReadCloser, error) {
	res := objects.Download(ctx, o.sc, container, name, nil)
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Body, nil
}

func (o *objectStorage) HeadObject(ctx context.Context, container, name string) (map[string]string, error) {
	return objects.Get(ctx, o.sc, container, name, nil).ExtractMetadata()
}

func (o *objectStorage) PutContainer(ctx context.Context, name string) error {
	_, err := containers.Create(ctx, o.sc, name, nil).Extract()
	return err
}

func (o *objectStorage) PutObject(ctx context.Context, container, name string, content io.Reader) error {
	_, err := objects.Create(ctx, o.sc, container, name, objects.CreateOpts{
		Content: content,
	}).Extract()
	return err
}

func (o *objectStorage) DeleteObject(ctx context.Context, container, name string) error {
	_, err := objects.Delete(ctx, o.sc, container, name, nil).Extract()
	return err
}

package openstack

import (
	"context"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
)

type compute struct {
	sc *gophercloud.ServiceClient
}

var _ osapi.Compute = (*compute)(nil)

// Ping runs the cheapest authenticated round trip Nova offers: a one-entry
// server listing.
func (c *compute) Ping(ctx context.Context) error {
	_, err := servers.List(c.sc, servers.ListOpts{Limit: 1}).AllPages(ctx)
	return err
}

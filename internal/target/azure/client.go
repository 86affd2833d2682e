package azure

import (
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/config"
)

// Build client from config. Priority: 1) SAS  2) Service Principal
// 3) DefaultAzureCredential.
func newClientFromConfig(c config.Config) (*azblob.Client, error) {
	endpoint := os.Getenv("AZURE_BLOB_ENDPOINT")
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", c.Azure.Account)
	}

	// 1) SAS
	if sasRaw := strings.TrimSpace(c.Azure.SASToken); sasRaw != "" {
		sas := strings.TrimPrefix(sasRaw, "?")
		return azblob.NewClientWithNoCredential(endpoint+"?"+sas, nil)
	}

	// 2) Service Principal
	if c.Azure.ClientID != "" && c.Azure.ClientSecret != "" && c.Azure.TenantID != "" {
		cred, err := azidentity.NewClientSecretCredential(
			c.Azure.TenantID, c.Azure.ClientID, c.Azure.ClientSecret, nil,
		)
		if err != nil {
			return nil, err
		}
		return azblob.NewClient(endpoint, cred, nil)
	}

	// 3) Managed Identity / DefaultAzureCredential
	defCred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azblob.NewClient(endpoint, defCred, nil)
}

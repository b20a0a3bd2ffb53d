package checkout

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
)

// ProviderMessage returns the provider supplied rejection message when there is
// one, and a support contact message otherwise.
func ProviderMessage(err error, supportEmail string) string {
	var remote *domain.RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return fmt.Sprintf("Purchase failed. Please contact %s for help", supportEmail)
}

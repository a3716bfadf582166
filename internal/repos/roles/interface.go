package roles

import "context"

// ResourceAll grants admin rights over every resource.
const ResourceAll = "*"

type Roles interface {
	IsAdmin(ctx context.Context, userID, resource string) (bool, error)
}

// BrandResource is the resource granting control over a brand's wallet.
func BrandResource(brandID string) string { return "brand:" + brandID }

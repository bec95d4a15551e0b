package federation

import (
	"context"
	"errors"

	"github.com/saintparish4/fedsdn/control-plane/database"
	"github.com/saintparish4/fedsdn/shared/models"
)

// SchemaVersion is the schema version this binary writes.
const SchemaVersion = 1

// Migrations returns the store migrations. The first one creates the root
// administrator from the configured credentials.
func Migrations(rootName, rootPassword string) []database.Migration {
	return []database.Migration{
		{
			VersionCode: 1,
			Description: "create root admin tenant",
			Apply: func(ctx context.Context, s *database.Store) error {
				return createRootTenant(ctx, s, rootName, rootPassword)
			},
		},
	}
}

func createRootTenant(ctx context.Context, s *database.Store, name, password string) error {
	if name == "" || password == "" {
		return errors.New("root username and password must be configured")
	}
	tenants := database.NewTable[models.Tenant](s, database.TenantTable)
	exists, err := tenants.Any(ctx, database.Where{"name": name})
	if err != nil || exists {
		return err
	}
	_, err = tenants.Insert(ctx, models.Tenant{Name: name, Password: password, Kind: models.TenantKindAdmin})
	return err
}

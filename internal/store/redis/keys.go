package redis

import (
	"strconv"

	"github.com/gosuda/tenancy/internal/tenant"
)

const keyPrefix = "tenancy:"

// CustomerKey returns the cache key of a customer. The tenant is part of the
// key, so equal customer ids in different tenants never share an entry.
func CustomerKey(id tenant.ID, customerID int64) string {
	return keyPrefix + id.String() + ":customer:" + strconv.FormatInt(customerID, 10)
}

// CustomerGenerationKey returns the key counting writes to a customer. Cache
// fills are only accepted while it is unchanged.
func CustomerGenerationKey(id tenant.ID, customerID int64) string {
	return CustomerKey(id, customerID) + ":gen"
}

// KnownTenantKey returns the key marking a tenant as present in the catalog.
func KnownTenantKey(id tenant.ID) string {
	return keyPrefix + "known:" + id.String()
}

// CustomerChannel returns the channel customer events of a tenant are
// published on.
func CustomerChannel(id tenant.ID) string {
	return keyPrefix + id.String() + ":customers"
}

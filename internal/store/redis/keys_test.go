package redis_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	redisstore "github.com/gosuda/tenancy/internal/store/redis"
	"github.com/gosuda/tenancy/internal/tenant"
)

func TestCustomerKey(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		got := redisstore.CustomerKey("dbsystc", 42)
		assert.Equal(t, "tenancy:dbsystc:customer:42", got)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()

		got := redisstore.CustomerKey("dbsystc", 1)
		assert.True(t, strings.HasPrefix(got, "tenancy:"), "expected prefix 'tenancy:', got %q", got)
	})

	t.Run("same id in different tenants", func(t *testing.T) {
		t.Parallel()

		a := redisstore.CustomerKey("dbsystc", 1)
		b := redisstore.CustomerKey("dbsystp", 1)
		assert.NotEqual(t, a, b)
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		a := redisstore.CustomerKey("test1", 7)
		b := redisstore.CustomerKey("test1", 7)
		assert.Equal(t, a, b)
	})
}

func TestCustomerGenerationKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tenancy:dbsystc:customer:42:gen", redisstore.CustomerGenerationKey("dbsystc", 42))
	assert.NotEqual(t, redisstore.CustomerKey("dbsystc", 42), redisstore.CustomerGenerationKey("dbsystc", 42))
	assert.NotEqual(t, redisstore.CustomerGenerationKey("dbsystc", 1), redisstore.CustomerGenerationKey("dbsystp", 1))
}

func TestKnownTenantKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tenancy:known:test1", redisstore.KnownTenantKey("test1"))
	assert.NotEqual(t, redisstore.KnownTenantKey("test1"), redisstore.KnownTenantKey("test2"))
}

func TestCustomerChannel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tenancy:dbsystc:customers", redisstore.CustomerChannel("dbsystc"))
	assert.NotEqual(t, redisstore.CustomerChannel("dbsystc"), redisstore.CustomerChannel("dbsystp"))
}

func TestKeys_NoCollisionAcrossTypes(t *testing.T) {
	t.Parallel()

	id := tenant.ID("test1")

	customer := redisstore.CustomerKey(id, 1)
	known := redisstore.KnownTenantKey(id)
	channel := redisstore.CustomerChannel(id)

	assert.NotEqual(t, customer, known, "customer and known-tenant keys must not collide")
	assert.NotEqual(t, customer, channel, "customer key and channel must not collide")
	assert.NotEqual(t, known, channel, "known-tenant key and channel must not collide")
}

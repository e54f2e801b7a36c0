package domain_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/tenancy/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. NewPage — paging flags derived from total count and page size.
// ---------------------------------------------------------------------------

func TestNewPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total      int64
		page, size int
		wantPages  int
		wantNext   bool
		wantPrev   bool
		wantFirst  bool
		wantLast   bool
	}{
		{total: 0, page: 0, size: 10, wantPages: 0, wantNext: false, wantPrev: false, wantFirst: true, wantLast: true},
		{total: 1, page: 0, size: 10, wantPages: 1, wantNext: false, wantPrev: false, wantFirst: true, wantLast: true},
		{total: 10, page: 0, size: 10, wantPages: 1, wantNext: false, wantPrev: false, wantFirst: true, wantLast: true},
		{total: 11, page: 0, size: 10, wantPages: 2, wantNext: true, wantPrev: false, wantFirst: true, wantLast: false},
		{total: 11, page: 1, size: 10, wantPages: 2, wantNext: false, wantPrev: true, wantFirst: false, wantLast: true},
		{total: 25, page: 1, size: 10, wantPages: 3, wantNext: true, wantPrev: true, wantFirst: false, wantLast: false},
		{total: 25, page: 2, size: 10, wantPages: 3, wantNext: false, wantPrev: true, wantFirst: false, wantLast: true},
		{total: 3, page: 5, size: 1, wantPages: 3, wantNext: false, wantPrev: true, wantFirst: false, wantLast: true},
		{total: 7, page: 0, size: 1, wantPages: 7, wantNext: true, wantPrev: false, wantFirst: true, wantLast: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("N=%d/S=%d/p=%d", tt.total, tt.size, tt.page), func(t *testing.T) {
			t.Parallel()

			req := domain.PageRequest{Page: tt.page, Size: tt.size, SortBy: "id", SortDir: domain.Ascending}
			p := domain.NewPage([]int{}, req, tt.total)

			assert.Equal(t, tt.wantPages, p.TotalPages, "total pages")
			assert.Equal(t, tt.wantNext, p.HasNext, "has next")
			assert.Equal(t, tt.wantPrev, p.HasPrevious, "has previous")
			assert.Equal(t, tt.wantFirst, p.IsFirst, "is first")
			assert.Equal(t, tt.wantLast, p.IsLast, "is last")
			assert.Equal(t, tt.total, p.TotalElements)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.size, p.Size)
		})
	}
}

// TestNewPage_Properties checks the paging formulas across a grid of sizes.
func TestNewPage_Properties(t *testing.T) {
	t.Parallel()

	for total := int64(0); total <= 40; total++ {
		for size := 1; size <= 12; size++ {
			wantPages := int(total) / size
			if int(total)%size != 0 {
				wantPages++
			}
			for page := 0; page <= wantPages+1; page++ {
				req := domain.PageRequest{Page: page, Size: size}
				p := domain.NewPage[string](nil, req, total)

				require.Equal(t, wantPages, p.TotalPages)
				require.Equal(t, page+1 < wantPages, p.HasNext)
				require.Equal(t, page > 0, p.HasPrevious)
				require.NotNil(t, p.Items)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// 2. NewPageRequest validation.
// ---------------------------------------------------------------------------

func TestNewPageRequest(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		req, err := domain.NewPageRequest(2, 25, "Name", "DESC")
		require.NoError(t, err)
		assert.Equal(t, domain.PageRequest{Page: 2, Size: 25, SortBy: "name", SortDir: domain.Descending}, req)
		assert.Equal(t, 50, req.Offset())
	})

	t.Run("defaults for empty sort", func(t *testing.T) {
		t.Parallel()

		req, err := domain.NewPageRequest(0, 10, "", "")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultPageRequest(), req)
	})

	invalid := []struct {
		name        string
		page, size  int
		sortBy, dir string
	}{
		{name: "negative page", page: -1, size: 10},
		{name: "zero size", page: 0, size: 0},
		{name: "oversized", page: 0, size: domain.MaxPageSize + 1},
		{name: "unknown column", page: 0, size: 10, sortBy: "tenant"},
		{name: "injection attempt", page: 0, size: 10, sortBy: "id; DROP TABLE customers"},
		{name: "unknown direction", page: 0, size: 10, dir: "sideways"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := domain.NewPageRequest(tc.page, tc.size, tc.sortBy, tc.dir)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

// ---------------------------------------------------------------------------
// 3. Customer construction and patching.
// ---------------------------------------------------------------------------

func TestNewCustomer(t *testing.T) {
	t.Parallel()

	c, err := domain.NewCustomer("  First Customer ")
	require.NoError(t, err)
	assert.Equal(t, "First Customer", c.Name)
	assert.Zero(t, c.ID)
	assert.Empty(t, c.Tenant)

	_, err = domain.NewCustomer("   ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCustomerPatch_Apply(t *testing.T) {
	t.Parallel()

	t.Run("nil fields leave customer unchanged", func(t *testing.T) {
		t.Parallel()

		c := &domain.Customer{ID: 1, Name: "text 1", Tenant: "acme"}
		require.NoError(t, domain.CustomerPatch{}.Apply(c))
		assert.Equal(t, &domain.Customer{ID: 1, Name: "text 1", Tenant: "acme"}, c)
	})

	t.Run("name replaced", func(t *testing.T) {
		t.Parallel()

		name := "Updated text"
		c := &domain.Customer{ID: 1, Name: "text 1", Tenant: "acme"}
		require.NoError(t, domain.CustomerPatch{Name: &name}.Apply(c))
		assert.Equal(t, "Updated text", c.Name)
		assert.Equal(t, int64(1), c.ID)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		t.Parallel()

		blank := " "
		c := &domain.Customer{ID: 1, Name: "text 1"}
		err := domain.CustomerPatch{Name: &blank}.Apply(c)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Equal(t, "text 1", c.Name)
	})
}

func TestNewAuditEntry(t *testing.T) {
	t.Parallel()

	e := domain.NewAuditEntry("create", "customer", 7, nil)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "create", e.Action)
	assert.Equal(t, "customer", e.Resource)
	assert.Equal(t, int64(7), e.ResourceID)
	assert.NotNil(t, e.Details)
	assert.False(t, e.CreatedAt.IsZero())

	other := domain.NewAuditEntry("create", "customer", 7, nil)
	assert.NotEqual(t, e.ID, other.ID)
}

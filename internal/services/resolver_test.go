package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quartermaster/backend/internal/identity"
	"github.com/quartermaster/backend/internal/models"
)

const testSuffix = "staff.example.test"

func TestIdentityResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("trusted reference wins without touching the provider", func(t *testing.T) {
		provider := identity.NewMemoryProvider()
		resolver := NewIdentityResolver(provider, testSuffix, 50)

		ref := "id-already-linked"
		res, err := resolver.Resolve(ctx, &models.Employee{Code: "E100", IdentityID: &ref})
		assert.NoError(t, err)
		assert.Equal(t, EvidenceByReference, res.Evidence)
		assert.Equal(t, ref, res.IdentityID)
	})

	t.Run("login key match is found across pages", func(t *testing.T) {
		provider := identity.NewMemoryProvider()
		for i := 0; i < 7; i++ {
			_, err := provider.Create(ctx, fmt.Sprintf("other%d@%s", i, testSuffix), "pw", identity.Claims{})
			assert.NoError(t, err)
		}
		target, err := provider.Create(ctx, "E200@"+testSuffix, "pw", identity.Claims{})
		assert.NoError(t, err)

		// Page size 3 forces the scan through several pages.
		resolver := NewIdentityResolver(provider, testSuffix, 3)
		res, err := resolver.Resolve(ctx, &models.Employee{Code: "e200"})
		assert.NoError(t, err)
		assert.Equal(t, EvidenceByLoginKey, res.Evidence)
		assert.Equal(t, target.ID, res.IdentityID)
	})

	t.Run("login key comparison is case and whitespace insensitive", func(t *testing.T) {
		provider := identity.NewMemoryProvider()
		target, err := provider.Create(ctx, "E300@"+testSuffix, "pw", identity.Claims{})
		assert.NoError(t, err)

		resolver := NewIdentityResolver(provider, testSuffix, 50)
		res, err := resolver.Resolve(ctx, &models.Employee{Code: "  E300  "})
		assert.NoError(t, err)
		assert.Equal(t, EvidenceByLoginKey, res.Evidence)
		assert.Equal(t, target.ID, res.IdentityID)
	})

	t.Run("claim code matches when login key does not", func(t *testing.T) {
		provider := identity.NewMemoryProvider()
		target, err := provider.Create(ctx, "legacy-mail@elsewhere.test", "pw", identity.Claims{Code: "E400"})
		assert.NoError(t, err)

		resolver := NewIdentityResolver(provider, testSuffix, 50)
		res, err := resolver.Resolve(ctx, &models.Employee{Code: "E400"})
		assert.NoError(t, err)
		assert.Equal(t, EvidenceByClaimCode, res.Evidence)
		assert.Equal(t, target.ID, res.IdentityID)
	})

	t.Run("login key rule outranks claim code rule", func(t *testing.T) {
		provider := identity.NewMemoryProvider()
		byKey, err := provider.Create(ctx, "E500@"+testSuffix, "pw", identity.Claims{})
		assert.NoError(t, err)
		_, err = provider.Create(ctx, "elsewhere@elsewhere.test", "pw", identity.Claims{Code: "E500"})
		assert.NoError(t, err)

		resolver := NewIdentityResolver(provider, testSuffix, 50)
		res, err := resolver.Resolve(ctx, &models.Employee{Code: "E500"})
		assert.NoError(t, err)
		assert.Equal(t, EvidenceByLoginKey, res.Evidence)
		assert.Equal(t, byKey.ID, res.IdentityID)
	})

	t.Run("multiple claim code matches are ambiguous", func(t *testing.T) {
		provider := identity.NewMemoryProvider()
		_, err := provider.Create(ctx, "one@elsewhere.test", "pw", identity.Claims{Code: "E600"})
		assert.NoError(t, err)
		_, err = provider.Create(ctx, "two@elsewhere.test", "pw", identity.Claims{Code: "e600"})
		assert.NoError(t, err)

		resolver := NewIdentityResolver(provider, testSuffix, 50)
		res, err := resolver.Resolve(ctx, &models.Employee{Code: "E600"})
		assert.ErrorIs(t, err, ErrAmbiguousIdentity)
		assert.NotNil(t, res)
		assert.Len(t, res.Matches, 2)
		assert.Empty(t, res.IdentityID)
	})

	t.Run("no correspondence returns none without error", func(t *testing.T) {
		provider := identity.NewMemoryProvider()
		_, err := provider.Create(ctx, "unrelated@elsewhere.test", "pw", identity.Claims{Code: "X1"})
		assert.NoError(t, err)

		resolver := NewIdentityResolver(provider, testSuffix, 50)
		res, err := resolver.Resolve(ctx, &models.Employee{Code: "E700"})
		assert.NoError(t, err)
		assert.Equal(t, EvidenceNone, res.Evidence)
		assert.Empty(t, res.IdentityID)
	})
}

func TestIdentityResolver_LoginKeyFor(t *testing.T) {
	resolver := NewIdentityResolver(identity.NewMemoryProvider(), testSuffix, 50)
	assert.Equal(t, "e42@"+testSuffix, resolver.LoginKeyFor("  E42 "))
}

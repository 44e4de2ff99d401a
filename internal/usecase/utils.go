package usecase

import (
	"sort"

	"fx-wallet-service/internal/domain"
)

func sortedUnique(currencies []domain.Currency) []domain.Currency {
	seen := make(map[domain.Currency]struct{}, len(currencies))
	out := make([]domain.Currency, 0, len(currencies))
	for _, c := range currencies {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// sameKey reports whether both records carry the same idempotency key.
func sameKey(a, b *domain.Transaction) bool {
	return a.IdempotencyKey != nil && b.IdempotencyKey != nil && *a.IdempotencyKey == *b.IdempotencyKey
}

package conversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashEmail_NormalizesCaseAndWhitespace(t *testing.T) {
	assert.Equal(t, HashEmail("test@example.com"), HashEmail("Test@Example.com"))
	assert.Equal(t, HashEmail("test@example.com"), HashEmail("test@example.com "))
	assert.Equal(t, HashEmail("Test@Example.com"), HashEmail("  TEST@EXAMPLE.COM\t"))
}

func TestHashEmail_FixedLengthHex(t *testing.T) {
	h := HashEmail("a@b.com")

	assert.Len(t, h, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", h)
	// SHA-256 of "a@b.com"
	assert.Equal(t, "fb98d44ad7501a959f3f4f4a3f004fe2d9e581ea6207e218c4b02c08a4d75adf", h)
}

func TestHashEmail_DistinctFixturesDoNotCollide(t *testing.T) {
	fixtures := []string{
		"a@b.com", "test@example.com", "buyer@shop.com.br", "ana.souza@gmail.com",
		"joao@outlook.com", "a@b.co", "b@a.com",
	}

	seen := make(map[string]string)
	for _, email := range fixtures {
		h := HashEmail(email)
		if other, ok := seen[h]; ok {
			t.Fatalf("hash collision between %q and %q", email, other)
		}
		seen[h] = email
	}
}

func TestHash_EmptyInputYieldsEmptyDigest(t *testing.T) {
	assert.Empty(t, Hash(""))
	assert.Empty(t, HashEmail("   "))
	assert.Empty(t, HashPhone("()-", "55"))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name        string
		phone       string
		countryCode string
		want        string
	}{
		{"national mobile gets country code", "(11) 98765-4321", "55", "5511987654321"},
		{"already international with plus", "+55 11 98765-4321", "55", "5511987654321"},
		{"international with 00 prefix", "0055 11 98765 4321", "55", "5511987654321"},
		{"other country in international form", "+1 (555) 123-4567", "55", "15551234567"},
		{"trunk zero is dropped", "011987654321", "55", "5511987654321"},
		{"no default country code", "11987654321", "", "11987654321"},
		{"empty", "", "55", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.phone, tt.countryCode))
		})
	}
}

func TestHashPhone_FormattingDoesNotChangeDigest(t *testing.T) {
	assert.Equal(t, HashPhone("+55 (11) 98765-4321", "55"), HashPhone("11987654321", "55"))
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("  Maria  da Silva ")
	assert.Equal(t, "Maria", first)
	assert.Equal(t, "Silva", last)

	first, last = SplitName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "joão", NormalizeName(" João "))
	assert.Equal(t, "obrien", NormalizeName("O'Brien"))
}

func TestNormalizeDocument(t *testing.T) {
	assert.Equal(t, "12345678909", NormalizeDocument("123.456.789-09"))
}

package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateDigest_KnownVectors checks digests against values computed with
// Python's hmac module: hmac.new(key, msg, hashlib.sha256).hexdigest().
// The enqueuing side and the worker side must agree on these byte for byte.
func TestGenerateDigest_KnownVectors(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		message string
		want    string
	}{
		{
			name:    "job description",
			secret:  "s3cr3t",
			message: `{"job_class":"Foo"}`,
			want:    "09c6671a3bf3fdb9e0eef85cc125b56e169a0a16d2db12d997c5f600f65c7579",
		},
		{
			name:    "empty message",
			secret:  "s3cr3t",
			message: "",
			want:    "3c81cc9496e1c25250f6ccb85f697c1bb623e3480d6538ad8cb6a6648142777d",
		},
		{
			name:    "description with arguments",
			secret:  "shared-secret",
			message: `{"job_class":"ProcessOrder","job_id":"4f2e9a1c","arguments":[42]}`,
			want:    "de1e550e1f47c11c35103e772d35d7eca3b563a326c72c485c98e2304b72c3a3",
		},
		{
			name:    "plain text",
			secret:  "shared-secret",
			message: "hello worker",
			want:    "9dec79d0b67e6b6ff9a442a411a59260415c3404762c196fe0f0fd449951d601",
		},
		{
			name:    "empty secret",
			secret:  "",
			message: "no key",
			want:    "361d4a2a0ab0e4000a7b58984bff4b5c2f863bd6af493de112b2510370a360a8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(tt.secret)
			got := v.GenerateDigest([]byte(tt.message))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateDigest_Shape(t *testing.T) {
	v := NewVerifier("any-secret")

	digest := v.GenerateDigest([]byte("any message"))

	// HMAC-SHA256 is 32 bytes, 64 lowercase hex characters
	assert.Len(t, digest, 64)
	for _, c := range digest {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'),
			"digest should be lowercase hex: %c", c)
	}
}

func TestVerify(t *testing.T) {
	const secret = "s3cr3t"
	const body = `{"job_class":"Foo"}`
	const goodDigest = "09c6671a3bf3fdb9e0eef85cc125b56e169a0a16d2db12d997c5f600f65c7579"

	v := NewVerifier(secret)

	t.Run("accepts matching digest", func(t *testing.T) {
		assert.NoError(t, v.Verify([]byte(body), goodDigest))
	})

	t.Run("rejects empty digest", func(t *testing.T) {
		err := v.Verify([]byte(body), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDigest)
	})

	t.Run("rejects digest for different message", func(t *testing.T) {
		err := v.Verify([]byte(`{"job_class":"Bar"}`), goodDigest)
		assert.ErrorIs(t, err, ErrInvalidDigest)
	})

	t.Run("rejects digest made with another secret", func(t *testing.T) {
		// hmac.new(b"wrong-secret", body, sha256)
		err := v.Verify([]byte(body), "de74cf092e70e3c0c70cb1a93b72a4870fc4359195f0f5528dc49563cc312b74")
		assert.ErrorIs(t, err, ErrInvalidDigest)
	})

	t.Run("rejects truncated digest", func(t *testing.T) {
		err := v.Verify([]byte(body), goodDigest[:32])
		assert.ErrorIs(t, err, ErrInvalidDigest)
	})

	t.Run("repeated verification is stable", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.NoError(t, v.Verify([]byte(body), goodDigest))
		}
	})
}

func TestVerify_RoundTrip(t *testing.T) {
	v := NewVerifier("round-trip-secret")
	message := []byte(`{"job_class":"Cleanup","arguments":["tmp",86400]}`)

	digest := v.GenerateDigest(message)

	assert.NoError(t, v.Verify(message, digest))
	assert.ErrorIs(t, v.Verify(append(message, '!'), digest), ErrInvalidDigest)
}

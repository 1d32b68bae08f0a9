package secretbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// encryptionContext is bound into every ciphertext; KMS refuses to decrypt a
// blob under a different context.
func encryptionContext(aad string) map[string]string {
	ec := map[string]string{"purpose": "keyport-credential"}
	if aad != "" {
		ec["binding"] = aad
	}
	return ec
}

// KMSAPI is the subset of *kms.Client the cipher uses.
type KMSAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMS is a Cipher backed by an AWS KMS symmetric key.
type KMS struct {
	client KMSAPI
	keyID  string
}

var _ Cipher = (*KMS)(nil)

// NewKMS loads the default AWS credential chain. region overrides the
// environment when non-empty.
func NewKMS(ctx context.Context, keyID, region string) (*KMS, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewKMSWithClient(kms.NewFromConfig(cfg), keyID), nil
}

// NewKMSWithClient wraps an existing client.
func NewKMSWithClient(client KMSAPI, keyID string) *KMS {
	return &KMS{client: client, keyID: keyID}
}

// Seal encrypts plaintext under the configured key.
func (c *KMS) Seal(ctx context.Context, plaintext, aad string) (string, error) {
	out, err := c.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:               aws.String(c.keyID),
		Plaintext:           []byte(plaintext),
		EncryptionAlgorithm: types.EncryptionAlgorithmSpecSymmetricDefault,
		EncryptionContext:   encryptionContext(aad),
	})
	if err != nil {
		return "", fmt.Errorf("kms encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

// Open decrypts a value produced by Seal. Transport failures are returned
// as-is; only undecodable or rejected ciphertexts map to ErrCorrupted.
func (c *KMS) Open(ctx context.Context, sealed, aad string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	out, err := c.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:      blob,
		KeyId:               aws.String(c.keyID),
		EncryptionAlgorithm: types.EncryptionAlgorithmSpecSymmetricDefault,
		EncryptionContext:   encryptionContext(aad),
	})
	if err != nil {
		var invalid *types.InvalidCiphertextException
		if errors.As(err, &invalid) {
			return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		return "", fmt.Errorf("kms decrypt: %w", err)
	}
	return string(out.Plaintext), nil
}

package s3

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/storage"
)

func TestFromStorageConfig(t *testing.T) {
	c := FromStorageConfig(storage.Config{
		Provider:       storage.ProviderS3,
		Bucket:         "raw-exports",
		Endpoint:       "http://localhost:9000",
		ForcePathStyle: true,
	})
	c.ApplyDefaults()
	if c.Bucket != "raw-exports" || c.Region != DefaultRegion || !c.ForcePathStyle {
		t.Errorf("unexpected config %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&Config{}).Validate(); err == nil {
		t.Error("expected error for empty config")
	}
}

func TestNewStorageEndpointUsesPathStyle(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")

	s, err := NewStorage(context.Background(), &Config{
		Bucket:    "raw-exports",
		Region:    "eu-west-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	opts := s.client.Options()
	if !opts.UsePathStyle {
		t.Error("custom endpoints should use path style")
	}
	if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://localhost:9000" {
		t.Errorf("unexpected endpoint %v", opts.BaseEndpoint)
	}
	if got := s.locator("a/b.zip"); got != "s3://raw-exports/a/b.zip" {
		t.Errorf("locator = %q", got)
	}
}

func TestReadErrorClassification(t *testing.T) {
	s := &Storage{bucket: "raw"}
	tests := []struct {
		name      string
		err       error
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{"no such key", fmt.Errorf("get: %w", &types.NoSuchKey{}), errors.ErrCodeNotFound, false},
		{"head not found", &types.NotFound{}, errors.ErrCodeNotFound, false},
		{"transport", fmt.Errorf("connection reset"), errors.ErrCodeSourceFailed, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.readError("k.zip", tc.err)
			if !errors.HasCode(err, tc.wantCode) {
				t.Errorf("expected %s, got %v", tc.wantCode, err)
			}
			if errors.IsRetryable(err) != tc.retryable {
				t.Errorf("retryable = %v, want %v", errors.IsRetryable(err), tc.retryable)
			}
		})
	}
}

// Package s3backend implements a backend.Bridge over S3-compatible object
// storage: each LUN is one object, reads use ranged GetObject requests, and
// writes read-modify-write the object (object storage has no in-place
// partial write primitive).
package s3backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/iscsitgt/internal/backend"
	"github.com/marmos91/iscsitgt/internal/logger"
)

// RetryConfig bounds the exponential backoff applied to transient S3
// errors (throttling, 5xx, network resets).
type RetryConfig struct {
	MaxRetries uint
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig mirrors a conservative policy of three retries (four
// attempts in total).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Bridge adapts LUNs onto S3 objects, one object per LUN keyed by
// lunObjectKey.
type Bridge struct {
	client *s3.Client
	bucket string
	retry  RetryConfig

	lunSizes map[uint64]uint32
}

// New creates a Bridge over the given bucket. lunSizes declares the fixed
// byte size of each LUN this bridge will serve (iSCSI LUNs are not
// resizable without a control-plane operation, so the size is fixed at
// construction).
func New(client *s3.Client, bucket string, lunSizes map[uint64]uint32, retry RetryConfig) *Bridge {
	return &Bridge{client: client, bucket: bucket, retry: retry, lunSizes: lunSizes}
}

func lunObjectKey(lun uint64) string {
	return fmt.Sprintf("lun-%020d.img", lun)
}

func (b *Bridge) calculateBackoff(attempt int) time.Duration {
	d := b.retry.BaseDelay << uint(attempt)
	if d > b.retry.MaxDelay {
		d = b.retry.MaxDelay
	}
	return d
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
			"InternalError", "ServiceUnavailable", "ServiceException":
			return true
		case "NoSuchKey", "NotFound", "AccessDenied", "Forbidden", "InvalidRange":
			return false
		}
	}
	s := err.Error()
	return strings.Contains(s, "connection reset") || strings.Contains(s, "i/o timeout") ||
		strings.Contains(s, "503") || strings.Contains(s, "500")
}

func isNotFoundError(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func cdbOffsetLength(cdb [16]byte) (offset uint32, length uint32) {
	lba := uint32(cdb[2])<<24 | uint32(cdb[3])<<16 | uint32(cdb[4])<<8 | uint32(cdb[5])
	blocks := uint32(cdb[7])<<8 | uint32(cdb[8])
	return lba * 512, blocks * 512
}

func (b *Bridge) ResolveLUN(ctx context.Context, lun uint64, cdb [16]byte) (*backend.BackendCmd, backend.LunError) {
	if _, ok := b.lunSizes[lun]; !ok {
		return nil, backend.LunErrorNotFound
	}
	return &backend.BackendCmd{LUN: lun, CDB: cdb, Done: make(chan backend.CompletionStatus, 1)}, backend.LunErrorNone
}

func (b *Bridge) AllocateTasks(ctx context.Context, cmd *backend.BackendCmd) backend.AllocError {
	return backend.AllocErrorNone
}

// getRange performs a retried ranged GetObject.
func (b *Bridge) getRange(ctx context.Context, key string, offset, length uint32) ([]byte, error) {
	rng := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)

	var lastErr error
	for attempt := 0; attempt <= int(b.retry.MaxRetries); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.calculateBackoff(attempt - 1)):
			}
		}

		out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
			Range:  aws.String(rng),
		})
		if err == nil {
			defer out.Body.Close()
			buf := make([]byte, length)
			n, readErr := io.ReadFull(out.Body, buf)
			if readErr != nil && readErr != io.ErrUnexpectedEOF {
				return nil, readErr
			}
			return buf[:n], nil
		}

		lastErr = err
		if isNotFoundError(err) || !isRetryableError(err) {
			break
		}
		logger.Debug("s3backend getRange retrying", logger.Attempt(attempt+1), logger.Err(err))
	}
	return nil, fmt.Errorf("s3 get object %s: %w", key, lastErr)
}

// putObject performs a retried full-object PutObject, used for the
// write-back side of the read-modify-write cycle.
func (b *Bridge) putObject(ctx context.Context, key string, data []byte) error {
	var lastErr error
	for attempt := 0; attempt <= int(b.retry.MaxRetries); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.calculateBackoff(attempt - 1)):
			}
		}

		_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			break
		}
		logger.Debug("s3backend putObject retrying", logger.Attempt(attempt+1), logger.Err(err))
	}
	return fmt.Errorf("s3 put object %s: %w", key, lastErr)
}

func (b *Bridge) HandleCDB(ctx context.Context, cmd *backend.BackendCmd) error {
	opcode := cmd.CDB[0]
	offset, length := cdbOffsetLength(cmd.CDB)
	key := lunObjectKey(cmd.LUN)

	switch opcode {
	case 0x28, 0x08:
		go func() {
			data, err := b.getRange(ctx, key, offset, length)
			if err != nil {
				cmd.Done <- backend.CompletionStatus{Sense: backend.Sense{SCSIStatus: 0x02, Key: 0x04}}
				return
			}
			cmd.Done <- backend.CompletionStatus{ReadData: data}
		}()
		return nil
	case 0x2A, 0x0A:
		// Write handling is driven by HandleData; HandleCDB only records
		// the intent here since data has not arrived yet.
		return nil
	default:
		go func() {
			cmd.Done <- backend.CompletionStatus{Sense: backend.Sense{SCSIStatus: 0x02, Key: 0x05, ASC: 0x20}}
		}()
		return nil
	}
}

func (b *Bridge) HandleData(ctx context.Context, cmd *backend.BackendCmd, offset uint32, data []byte) error {
	size := b.lunSizes[cmd.LUN]
	key := lunObjectKey(cmd.LUN)

	existing, err := b.getRange(ctx, key, 0, size)
	if err != nil {
		existing = make([]byte, size)
	}
	if int(offset)+len(data) > len(existing) {
		return fmt.Errorf("write beyond lun bound: offset=%d len=%d size=%d", offset, len(data), size)
	}
	copy(existing[offset:], data)

	go func() {
		if err := b.putObject(ctx, key, existing); err != nil {
			cmd.Done <- backend.CompletionStatus{Sense: backend.Sense{SCSIStatus: 0x02, Key: 0x03}}
			return
		}
		cmd.Done <- backend.CompletionStatus{BytesWritten: uint32(len(data))}
	}()
	return nil
}

func (b *Bridge) HandleTMR(ctx context.Context, fn backend.TMRFunction, target *backend.BackendCmd, referencedCmd *backend.BackendCmd) error {
	switch fn {
	case backend.TMRAbortTask, backend.TMRAbortTaskSet, backend.TMRLogicalUnitReset,
		backend.TMRTargetWarmReset, backend.TMRTargetColdReset, backend.TMRTaskReassign:
		return nil
	default:
		return backend.ErrUnsupportedTMR
	}
}

func (b *Bridge) WaitForTasks(ctx context.Context, cmd *backend.BackendCmd, abort <-chan struct{}) (backend.CompletionStatus, error) {
	select {
	case status := <-cmd.Done:
		return status, nil
	case <-abort:
		return backend.CompletionStatus{}, context.Canceled
	case <-ctx.Done():
		return backend.CompletionStatus{}, ctx.Err()
	}
}

var _ backend.Bridge = (*Bridge)(nil)

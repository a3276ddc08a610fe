// Package archive uploads JSON snapshots of both stores to S3-compatible
// object storage before a full wipe.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/keygate/internal/server/config"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/google/uuid"
)

type UserRecord struct {
	ID                  int64      `json:"uid"`
	UserName            string     `json:"username"`
	Email               string     `json:"email"`
	HWID                *string    `json:"hwid"`
	SubscriptionType    string     `json:"subscription_type,omitempty"`
	SubscriptionExpires *time.Time `json:"subscription_expires"`
	CreatedAt           time.Time  `json:"created_at"`
}

type KeyRecord struct {
	ID               int64      `json:"id"`
	Code             string     `json:"key_code"`
	SubscriptionType string     `json:"subscription_type"`
	DurationDays     int        `json:"duration_days"`
	Used             bool       `json:"used"`
	UsedBy           *int64     `json:"used_by"`
	UsedAt           *time.Time `json:"used_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Snapshot is the archived content of both stores. Password hashes are not
// included.
type Snapshot struct {
	TakenAt time.Time    `json:"taken_at"`
	Users   []UserRecord `json:"users"`
	Keys    []KeyRecord  `json:"keys"`
}

func NewSnapshot(takenAt time.Time, users []*models.User, keys []*models.ActivationKey) *Snapshot {
	s := &Snapshot{
		TakenAt: takenAt.UTC(),
		Users:   make([]UserRecord, 0, len(users)),
		Keys:    make([]KeyRecord, 0, len(keys)),
	}
	for _, u := range users {
		s.Users = append(s.Users, UserRecord{
			ID:                  u.ID,
			UserName:            u.UserName,
			Email:               u.Email,
			HWID:                u.HWID,
			SubscriptionType:    string(u.Entitlement.Type),
			SubscriptionExpires: u.Entitlement.ExpiresAt,
			CreatedAt:           u.CreatedAt,
		})
	}
	for _, k := range keys {
		s.Keys = append(s.Keys, KeyRecord{
			ID:               k.ID,
			Code:             k.Code,
			SubscriptionType: string(k.SubscriptionType),
			DurationDays:     k.DurationDays,
			Used:             k.Used,
			UsedBy:           k.UsedBy,
			UsedAt:           k.UsedAt,
			CreatedAt:        k.CreatedAt,
		})
	}
	return s
}

// ObjectKey names the object a snapshot taken at t is stored under.
func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("wipes/%d/%02d/%02d/%s.json", t.Year(), t.Month(), t.Day(), uuid.New())
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archiver struct {
	client objectPutter
	bucket string
}

// Seams for tests.
var (
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx, optFns...)
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Archiver builds a client for the bucket and endpoint in cfg using
// static credentials.
func NewS3Archiver(ctx context.Context, cfg *config.Config) (*S3Archiver, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Archiver{client: client, bucket: cfg.S3Bucket}, nil
}

// Archive uploads snap and returns the object key it was stored under.
func (a *S3Archiver) Archive(ctx context.Context, snap *Snapshot) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := ObjectKey(snap.TakenAt)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	return key, nil
}

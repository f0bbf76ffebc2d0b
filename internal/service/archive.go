package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ArchiveResult 报告归档结果
type ArchiveResult struct {
	Bucket      string    `json:"bucket"`
	ObjectKey   string    `json:"object_key"`
	Size        int64     `json:"size"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ReportArchive 报告快照归档（MinIO）
type ReportArchive struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewReportArchive 创建归档。client 为 nil 时归档不可用
func NewReportArchive(client *minio.Client, bucket string, logger *zap.Logger) *ReportArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportArchive{client: client, bucket: bucket, logger: logger}
}

// Enabled 是否已配置
func (a *ReportArchive) Enabled() bool {
	return a != nil && a.client != nil
}

// EnsureBucket 确保存储桶存在
func (a *ReportArchive) EnsureBucket(ctx context.Context) error {
	if !a.Enabled() {
		return ErrArchiveDisabled
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	a.logger.Info("Created report bucket", zap.String("bucket", a.bucket))
	return nil
}

// ReportObjectKey 报告快照对象路径
func ReportObjectKey(productID string, generatedAt time.Time) string {
	return fmt.Sprintf("reports/%s/%s.json", productID, generatedAt.UTC().Format("20060102T150405.000Z"))
}

// Store 上传报告JSON
func (a *ReportArchive) Store(ctx context.Context, doc *carbon.ReportDocument) (*ArchiveResult, error) {
	if !a.Enabled() {
		return nil, ErrArchiveDisabled
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	key := ReportObjectKey(doc.ProductID, doc.GeneratedAt)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"product-id": doc.ProductID,
			"standard":   doc.GoalScope.Standard,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload report: %w", err)
	}

	return &ArchiveResult{
		Bucket:      a.bucket,
		ObjectKey:   key,
		Size:        int64(len(data)),
		GeneratedAt: doc.GeneratedAt,
	}, nil
}

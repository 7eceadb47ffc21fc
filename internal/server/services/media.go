package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mpopescu/famvault/internal/common"
	sc "github.com/mpopescu/famvault/internal/server/config"
	"github.com/mpopescu/famvault/internal/server/models"
	"github.com/mpopescu/famvault/internal/server/repositories/repomanager"
)

// presignValidity bounds how long an upload or download URL stays usable.
const presignValidity = 15 * time.Minute

// Seams for testing the AWS SDK calls.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteS3Object = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
)

// MediaService manages the shared media catalog: encrypted catalog records
// in the database, blobs in object storage reached through presigned URLs.
type MediaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

// NewMediaService constructs a MediaService.
func NewMediaService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *MediaService {
	return &MediaService{db: db, repomanager: m, config: cfg}
}

// RandomStorageKey returns a fresh date-partitioned object key.
func RandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("media/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// AddMedia records a new catalog entry and returns it together with a
// presigned PUT URL the client uploads the blob to.
func (s *MediaService) AddMedia(ctx context.Context, description string, persons []string, story, fileType string) (*models.Media, string, error) {
	m := &models.Media{
		Description: description,
		Persons:     persons,
		Story:       story,
		StorageKey:  RandomStorageKey(),
		FileType:    fileType,
	}

	created, err := s.repomanager.Media(s.db).Create(ctx, m)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	uploadURL, err := s.presignPut(ctx, created.StorageKey)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	return created, uploadURL, nil
}

// GetDownloadURL returns a presigned GET URL for a cataloged blob.
func (s *MediaService) GetDownloadURL(ctx context.Context, storageKey string) (string, error) {
	if _, err := s.repomanager.Media(s.db).FindByStorageKey(ctx, storageKey); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", common.ErrorInternal
	}

	url, err := s.presignGet(ctx, storageKey)
	if err != nil {
		return "", common.ErrorInternal
	}
	return url, nil
}

// DeleteMedia removes a catalog entry and its stored blob.
func (s *MediaService) DeleteMedia(ctx context.Context, id string) error {
	m, err := s.repomanager.Media(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	client, err := s.getS3Client(ctx)
	if err != nil {
		return common.ErrorInternal
	}
	if _, err := deleteS3Object(client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(m.StorageKey),
	}); err != nil {
		return common.ErrorInternal
	}

	if err := s.repomanager.Media(s.db).Delete(ctx, id); err != nil {
		// A concurrent delete already removed the record; the blob is gone
		// either way.
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}
	return nil
}

// ListMedia returns one page of the catalog, newest first.
func (s *MediaService) ListMedia(ctx context.Context, pageNumber, pageSize int) (*models.MediaPage, error) {
	pageNumber, pageSize = normalizePage(pageNumber, pageSize)

	items, total, err := s.repomanager.Media(s.db).List(ctx, (pageNumber-1)*pageSize, pageSize)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &models.MediaPage{Items: items, TotalCount: total, PageNumber: pageNumber, PageSize: pageSize}, nil
}

// SearchByPerson returns the page of catalog entries whose person list
// contains the query as a case-insensitive substring. Person names are
// encrypted at rest, so the filter runs over decrypted records in memory.
func (s *MediaService) SearchByPerson(ctx context.Context, person string, pageNumber, pageSize int) (*models.MediaPage, error) {
	pageNumber, pageSize = normalizePage(pageNumber, pageSize)

	all, err := s.repomanager.Media(s.db).ListAll(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}

	needle := strings.ToLower(person)
	var matched []*models.Media
	for _, m := range all {
		for _, p := range m.Persons {
			if strings.Contains(strings.ToLower(p), needle) {
				matched = append(matched, m)
				break
			}
		}
	}

	start := (pageNumber - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return &models.MediaPage{
		Items:      matched[start:end],
		TotalCount: int64(len(matched)),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, nil
}

// --- helpers below ---

func normalizePage(pageNumber, pageSize int) (int, int) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return pageNumber, pageSize
}

func (s *MediaService) getS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	}), nil
}

func (s *MediaService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	client, err := s.getS3Client(ctx)
	if err != nil {
		return nil, err
	}
	return newS3PresignClient(client), nil
}

func (s *MediaService) presignPut(ctx context.Context, key string) (string, error) {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *MediaService) presignGet(ctx context.Context, key string) (string, error) {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

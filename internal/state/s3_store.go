package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wharfctl/wharf/internal/ir"
)

// s3Store keeps deployed records in S3, with optional DynamoDB
// locking for teams deploying the same stage from multiple machines.
type s3Store struct {
	bucket        string
	prefix        string
	region        string
	dynamoDBTable string
	sse           bool
	profile       string

	s3Client *s3.Client
	dbClient *dynamodb.Client
	lockID   string
}

func newS3Store(config map[string]string) (Store, error) {
	bucket := config["bucket"]
	if bucket == "" {
		return nil, fmt.Errorf("s3 store requires 'bucket' configuration")
	}

	prefix := config["prefix"]
	if prefix == "" {
		prefix = "wharf/deployed"
	}

	region := config["region"]
	if region == "" {
		region = "us-east-1"
	}

	s := &s3Store{
		bucket:        bucket,
		prefix:        prefix,
		region:        region,
		dynamoDBTable: config["dynamodb_table"],
		sse:           config["sse"] == "true",
		profile:       config["profile"],
	}

	if err := s.initClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize s3 store: %w", err)
	}

	return s, nil
}

func (s *s3Store) initClients() error {
	ctx := context.Background()

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(s.region))
	if s.profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("unable to load AWS config: %w", err)
	}

	s.s3Client = s3.NewFromConfig(cfg)

	if s.dynamoDBTable != "" {
		s.dbClient = dynamodb.NewFromConfig(cfg)
	}

	return nil
}

func (s *s3Store) recordKey(stage string) string {
	return path.Join(s.prefix, stage+".json")
}

func (s *s3Store) Load(ctx context.Context, stage string) (*ir.DeployedResources, error) {
	key := s.recordKey(stage)
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// A missing record means nothing has been deployed yet
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return ir.NewDeployedResources(), nil
		}
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return ir.NewDeployedResources(), nil
		}
		return nil, fmt.Errorf("failed to read record from s3://%s/%s: %w", s.bucket, key, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	return decodeRecord(buf.Bytes(), "s3://"+s.bucket+"/"+key)
}

func (s *s3Store) Save(ctx context.Context, stage string, deployed *ir.DeployedResources) error {
	content, err := encodeRecord(deployed)
	if err != nil {
		return err
	}

	key := s.recordKey(stage)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	}
	if s.sse {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to write record to s3://%s/%s: %w", s.bucket, key, err)
	}

	return nil
}

func (s *s3Store) Lock(stage string) error {
	if s.dynamoDBTable == "" {
		return nil // No locking without DynamoDB
	}

	lockKey := s.recordKey(stage)
	s.lockID = fmt.Sprintf("wharf-%d-%d", os.Getpid(), time.Now().UnixNano())

	_, err := s.dbClient.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(s.dynamoDBTable),
		Item: map[string]dbtypes.AttributeValue{
			"LockID":  &dbtypes.AttributeValueMemberS{Value: lockKey},
			"Info":    &dbtypes.AttributeValueMemberS{Value: s.lockID},
			"Created": &dbtypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(LockID)"),
	})
	if err != nil {
		if strings.Contains(err.Error(), "ConditionalCheckFailedException") {
			return fmt.Errorf("stage %s is locked by another process. If this is an error, "+
				"manually delete the lock item with LockID=%q from DynamoDB table %q",
				stage, lockKey, s.dynamoDBTable)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	return nil
}

func (s *s3Store) Unlock(stage string) error {
	if s.dynamoDBTable == "" {
		return nil
	}

	_, err := s.dbClient.DeleteItem(context.Background(), &dynamodb.DeleteItemInput{
		TableName: aws.String(s.dynamoDBTable),
		Key: map[string]dbtypes.AttributeValue{
			"LockID": &dbtypes.AttributeValueMemberS{Value: s.recordKey(stage)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/google/uuid"
)

// pollInterval is the sleep between Textract completion polls (spec.md
// §4.D: "poll until SUCCEEDED or FAILED, sleeping ~1s between polls").
const pollInterval = time.Second

// TextractAdapter implements Analyzer against AWS Textract, staging document
// bytes at an ephemeral S3 key for the duration of the async analysis
// (spec.md §4.D).
type TextractAdapter struct {
	textract *textract.Client
	s3       *s3.Client
	bucket   string
}

// NewTextractAdapter builds a TextractAdapter using bucket as the ephemeral
// object-storage staging area.
func NewTextractAdapter(textractClient *textract.Client, s3Client *s3.Client, bucket string) *TextractAdapter {
	return &TextractAdapter{textract: textractClient, s3: s3Client, bucket: bucket}
}

// Analyze uploads pdfBytes to an ephemeral S3 key, starts async document
// analysis, polls until terminal, paginates results, and always deletes the
// ephemeral key before returning (spec.md §4.D: "always delete the ephemeral
// key in a finally-style release").
func (a *TextractAdapter) Analyze(ctx context.Context, documentID string, pdfBytes []byte, features Features) (*Result, error) {
	key := fmt.Sprintf("ocr-staging/%s-%s.pdf", documentID, uuid.NewString())

	if err := a.stage(ctx, key, pdfBytes); err != nil {
		return nil, wrapFailed("staging document: %v", err)
	}
	defer a.release(key)

	jobID, err := a.startAnalysis(ctx, key, features)
	if err != nil {
		return nil, wrapFailed("starting analysis: %v", err)
	}

	if err := a.pollUntilDone(ctx, jobID); err != nil {
		return nil, err
	}

	blocks, err := a.collectResults(ctx, jobID)
	if err != nil {
		return nil, wrapFailed("collecting results: %v", err)
	}
	return &Result{Blocks: blocks}, nil
}

func (a *TextractAdapter) stage(ctx context.Context, key string, data []byte) error {
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytesReader(data),
	})
	return err
}

func (a *TextractAdapter) release(key string) {
	_, err := a.s3.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Warn("failed to delete ephemeral OCR staging object", "key", key, "error", err)
	}
}

func (a *TextractAdapter) startAnalysis(ctx context.Context, key string, features Features) (string, error) {
	var featureTypes []types.FeatureType
	if features.Tables {
		featureTypes = append(featureTypes, types.FeatureTypeTables)
	}
	if features.Forms {
		featureTypes = append(featureTypes, types.FeatureTypeForms)
	}
	if len(features.Queries) > 0 {
		featureTypes = append(featureTypes, types.FeatureTypeQueries)
	}
	if len(featureTypes) == 0 {
		featureTypes = []types.FeatureType{types.FeatureTypeForms}
	}

	out, err := a.textract.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{Bucket: aws.String(a.bucket), Name: aws.String(key)},
		},
		FeatureTypes: featureTypes,
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.JobId), nil
}

func (a *TextractAdapter) pollUntilDone(ctx context.Context, jobID string) error {
	for {
		out, err := a.textract.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{JobId: aws.String(jobID)})
		if err != nil {
			return wrapFailed("polling job %s: %v", jobID, err)
		}
		switch out.JobStatus {
		case types.JobStatusSucceeded:
			return nil
		case types.JobStatusFailed:
			return wrapFailed("job %s failed: %s", jobID, aws.ToString(out.StatusMessage))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (a *TextractAdapter) collectResults(ctx context.Context, jobID string) ([]Block, error) {
	var blocks []Block
	var token *string
	for {
		out, err := a.textract.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:     aws.String(jobID),
			NextToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, b := range out.Blocks {
			blocks = append(blocks, convertBlock(b))
		}
		if out.NextToken == nil {
			break
		}
		token = out.NextToken
	}
	return blocks, nil
}

func convertBlock(b types.Block) Block {
	out := Block{
		ID:        aws.ToString(b.Id),
		BlockType: BlockType(b.BlockType),
		Text:      aws.ToString(b.Text),
		Page:      int(aws.ToInt32(b.Page)) - 1, // Textract pages are 1-indexed; spec.md is 0-indexed.
	}
	for _, e := range b.EntityTypes {
		out.EntityTypes = append(out.EntityTypes, EntityType(e))
	}
	for _, r := range b.Relationships {
		out.Relationships = append(out.Relationships, Relationship{
			Type: string(r.Type),
			IDs:  r.Ids,
		})
	}
	return out
}

package results

import (
	"context"
	"io"
	"time"
)

// Repository port (persistence of analysis_results)
type Repository interface {
	Stats(ctx context.Context, tr TimeRange, by ReviewedBy) (Accuracy, error)
	Search(ctx context.Context, f Filter, limit int) ([]*AnalysisResult, error)
	Get(ctx context.Context, id ID) (*AnalysisResult, error)
	UpdateCorrection(ctx context.Context, id ID, c Correction, isCorrect bool, at time.Time) error
}

// ImageStore port (resolves opaque image paths to bytes)
type ImageStore interface {
	Open(ctx context.Context, path string) (io.ReadCloser, string, error)
}

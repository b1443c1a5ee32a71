package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/repurposehq/repurpose/internal/ai"
	"github.com/repurposehq/repurpose/internal/models"
	"github.com/repurposehq/repurpose/internal/source"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Job{},
		&models.ContentAtom{},
		&models.Post{},
		&models.ScheduleEntry{},
	))
	return db
}

// fakeResolver returns a canned resolution or error.
type fakeResolver struct {
	resolved source.ResolvedSource
	err      error
	calls    int
}

func (f *fakeResolver) Resolve(ctx context.Context, sourceURL string) (source.ResolvedSource, error) {
	f.calls++
	return f.resolved, f.err
}

// emptyProvider answers every extraction with nothing.
type emptyProvider struct{ ai.MockProvider }

func (*emptyProvider) ExtractAtoms(ctx context.Context, text string) ([]ai.Atom, error) {
	return nil, nil
}

func (*emptyProvider) ExtractAtomsFromMetadata(ctx context.Context, meta source.Metadata) ([]ai.Atom, error) {
	return nil, nil
}

func createJob(t *testing.T, db *gorm.DB, status string) *models.Job {
	t.Helper()
	job := &models.Job{
		PublicID:  uuid.NewString(),
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Status:    status,
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

func TestRunTranscriptJobCompletes(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusQueued)
	resolver := &fakeResolver{resolved: source.ResolvedSource{
		Kind: source.KindTranscript,
		Text: "a talk about shipping software",
	}}
	p := NewProcessor(db, resolver, ai.NewMockProvider(), nil, nil)

	require.NoError(t, p.Run(context.Background(), job.ID))

	var got models.Job
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, models.SourceKindTranscript, got.SourceKind)
	assert.Equal(t, "a talk about shipping software", got.RawText)

	var atomCount, postCount int64
	require.NoError(t, db.Model(&models.ContentAtom{}).Where("job_id = ?", job.ID).Count(&atomCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	assert.EqualValues(t, 4, atomCount)
	assert.EqualValues(t, 8, postCount, "each atom gets one post per platform")

	var posts []models.Post
	require.NoError(t, db.Order("id").Find(&posts).Error)
	for _, post := range posts {
		assert.True(t, post.Included)
		assert.True(t, strings.HasPrefix(post.Text, "[MOCK "), "posts carry rewritten text: %q", post.Text)
	}
}

func TestRunIsIdempotentAcrossRetries(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusQueued)
	resolver := &fakeResolver{resolved: source.ResolvedSource{Kind: source.KindTranscript, Text: "text"}}
	p := NewProcessor(db, resolver, ai.NewMockProvider(), nil, nil)

	require.NoError(t, p.Run(context.Background(), job.ID))

	// Simulate the retry of a run that failed after persisting atoms.
	require.NoError(t, db.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", models.JobStatusFailed).Error)
	require.NoError(t, p.Run(context.Background(), job.ID))

	var atomCount, postCount int64
	require.NoError(t, db.Model(&models.ContentAtom{}).Where("job_id = ?", job.ID).Count(&atomCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	assert.EqualValues(t, 4, atomCount, "retry must not duplicate atoms")
	assert.EqualValues(t, 8, postCount, "retry must not duplicate posts")

	// Source resolution is skipped once raw_text is persisted.
	assert.Equal(t, 1, resolver.calls)
}

func TestRunCompletedJobSkipped(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusCompleted)
	resolver := &fakeResolver{}
	p := NewProcessor(db, resolver, ai.NewMockProvider(), nil, nil)

	require.NoError(t, p.Run(context.Background(), job.ID))
	assert.Zero(t, resolver.calls)
}

func TestRunJobNotFound(t *testing.T) {
	db := newTestDB(t)
	p := NewProcessor(db, &fakeResolver{}, ai.NewMockProvider(), nil, nil)
	err := p.Run(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunEmptyExtractionFailsWithoutRetry(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusQueued)
	resolver := &fakeResolver{resolved: source.ResolvedSource{Kind: source.KindTranscript, Text: "text"}}
	p := NewProcessor(db, resolver, &emptyProvider{}, nil, nil)

	// nil error: an empty extraction is terminal, not retryable.
	require.NoError(t, p.Run(context.Background(), job.ID))

	var got models.Job
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, ErrNoAtomsExtracted.Error(), got.ErrorMessage)
}

func TestRunResolveFailureMarksFailed(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusQueued)
	resolveErr := errors.New("watch page returned status 503")
	p := NewProcessor(db, &fakeResolver{err: resolveErr}, ai.NewMockProvider(), nil, nil)

	err := p.Run(context.Background(), job.ID)
	assert.ErrorIs(t, err, resolveErr)

	var got models.Job
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "Failed to fetch content source")
}

func TestRunPendingHandsOffToAudio(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusQueued)
	resolver := &fakeResolver{resolved: source.ResolvedSource{Kind: source.KindPending}}

	var enqueued []uint
	p := NewProcessor(db, resolver, ai.NewMockProvider(), func(jobID uint) error {
		enqueued = append(enqueued, jobID)
		return nil
	}, nil)

	require.NoError(t, p.Run(context.Background(), job.ID))
	require.Len(t, enqueued, 1)
	assert.Equal(t, job.ID, enqueued[0])

	var got models.Job
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.JobStatusProcessing, got.Status, "job stays in processing until audio lands")

	var atomCount int64
	require.NoError(t, db.Model(&models.ContentAtom{}).Count(&atomCount).Error)
	assert.Zero(t, atomCount)
}

func TestRunPendingEnqueueFailure(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusQueued)
	resolver := &fakeResolver{resolved: source.ResolvedSource{Kind: source.KindPending}}
	p := NewProcessor(db, resolver, ai.NewMockProvider(), func(uint) error {
		return errors.New("redis down")
	}, nil)

	err := p.Run(context.Background(), job.ID)
	require.Error(t, err)

	var got models.Job
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.JobStatusFailed, got.Status)
}

func TestRunMetadataFallback(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusQueued)
	resolver := &fakeResolver{resolved: source.ResolvedSource{
		Kind: source.KindMetadata,
		Meta: source.Metadata{Title: "Concurrency Patterns", Description: "channels and contexts"},
	}}
	p := NewProcessor(db, resolver, ai.NewMockProvider(), nil, nil)

	require.NoError(t, p.Run(context.Background(), job.ID))

	var got models.Job
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, models.SourceKindMetadata, got.SourceKind)
	assert.Equal(t, models.RawTextMetadataFallback, got.RawText)
	assert.Contains(t, string(got.Metadata), "Concurrency Patterns")

	// The metadata extraction path produces the mock's three atoms.
	var atoms []models.ContentAtom
	require.NoError(t, db.Where("job_id = ?", job.ID).Order("id").Find(&atoms).Error)
	require.Len(t, atoms, 3)
	assert.Contains(t, atoms[0].Text, "Concurrency Patterns")
}

func TestRunInvalidAtomTypeCoerced(t *testing.T) {
	db := newTestDB(t)
	job := createJob(t, db, models.JobStatusQueued)
	job.RawText = "already resolved"
	require.NoError(t, db.Save(job).Error)

	provider := &staticProvider{atoms: []ai.Atom{{Type: "manifesto", Text: "odd one"}}}
	p := NewProcessor(db, &fakeResolver{}, provider, nil, nil)

	require.NoError(t, p.Run(context.Background(), job.ID))

	var atom models.ContentAtom
	require.NoError(t, db.Where("job_id = ?", job.ID).First(&atom).Error)
	assert.Equal(t, models.AtomTypeInsight, atom.Type)
}

// staticProvider returns a fixed atom list for any extraction.
type staticProvider struct {
	ai.MockProvider
	atoms []ai.Atom
}

func (s *staticProvider) ExtractAtoms(ctx context.Context, text string) ([]ai.Atom, error) {
	return s.atoms, nil
}

package classify

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/repository"
)

// defaultPromptTemplates pad the ensemble when a category carries fewer
// templates than the configured ensemble size.
var defaultPromptTemplates = []string{
	"a photo of {}",
	"an image of {}",
	"a picture showing {}",
	"{}",
}

// TagScore is one accepted tag with its final confidence.
type TagScore struct {
	TagID      int64   `json:"tagId"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of classifying one image. Scores holds the final
// per-tag distribution for every candidate; Accepted only those at or above
// their effective threshold.
type Result struct {
	Scores   map[int64]float64 `json:"scores"`
	Accepted []TagScore        `json:"accepted"`
}

// BatchReport tallies a classification batch. Per-image failures never
// abort the remaining images.
type BatchReport struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Failures  []string `json:"failures"`
}

// Engine builds prompt ensembles per candidate tag, reduces the raw
// classifier scores into a stable per-tag confidence and persists accepted
// tags. The normalize -> temperature -> softmax -> max -> softmax order is
// load-bearing; changing it changes the sharpness of the result.
type Engine struct {
	client       *Client
	images       repository.ImageRepository
	tags         repository.TagRepository
	ensembleSize int
	temperature  float64
	floor        float64
	logger       *logger.Logger
}

// NewEngine creates a classification engine.
func NewEngine(client *Client, images repository.ImageRepository, tags repository.TagRepository,
	ensembleSize int, temperature, floor float64, logger *logger.Logger) *Engine {
	if ensembleSize < 1 {
		ensembleSize = len(defaultPromptTemplates)
	}
	return &Engine{
		client:       client,
		images:       images,
		tags:         tags,
		ensembleSize: ensembleSize,
		temperature:  temperature,
		floor:        floor,
		logger:       logger,
	}
}

// BuildPrompts constructs the fixed-size prompt ensemble for one tag. The
// tag's prompt words (or its name) fill the {} slot of the category
// templates, padded with the default phrasings when the category has fewer.
func (e *Engine) BuildPrompts(tag *model.Tag, category *model.TagCategory) []string {
	words := tag.PromptWords
	if words == "" {
		words = tag.Name
	}

	templates := make([]string, 0, e.ensembleSize)
	if category != nil {
		templates = append(templates, category.PromptTemplates...)
	}
	templates = append(templates, defaultPromptTemplates...)

	prompts := make([]string, e.ensembleSize)
	for i := 0; i < e.ensembleSize; i++ {
		prompts[i] = strings.ReplaceAll(templates[i%len(templates)], "{}", words)
	}
	return prompts
}

// Reduce collapses the raw per-prompt scores into one confidence per tag.
// Pure function of its inputs: same scores in, same distribution out.
//
//  1. L2-normalize the score vector
//  2. divide by the temperature
//  3. softmax over all prompts
//  4. take each tag's maximum prompt probability
//  5. softmax the maxima, again temperature-scaled
func (e *Engine) Reduce(scores []float64, numTags int) ([]float64, error) {
	if numTags == 0 || len(scores) != numTags*e.ensembleSize {
		return nil, fmt.Errorf("expected %d scores for %d tags, got %d: %w",
			numTags*e.ensembleSize, numTags, len(scores), catalog.ErrClassification)
	}

	var norm float64
	for _, s := range scores {
		norm += s * s
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	scaled := make([]float64, len(scores))
	for i, s := range scores {
		scaled[i] = s / norm / e.temperature
	}
	probs := softmax(scaled)

	// The maximum, not the average: the single best-phrased match wins and
	// weak phrasings cannot dilute a true match.
	maxima := make([]float64, numTags)
	for t := 0; t < numTags; t++ {
		best := probs[t*e.ensembleSize]
		for i := 1; i < e.ensembleSize; i++ {
			if p := probs[t*e.ensembleSize+i]; p > best {
				best = p
			}
		}
		maxima[t] = best
	}

	for i := range maxima {
		maxima[i] /= e.temperature
	}
	return softmax(maxima), nil
}

// ClassifyImage scores the candidate tags for one image. It performs a
// single classifier call for the full prompt batch and applies the
// per-tag effective threshold. No persistence happens here.
func (e *Engine) ClassifyImage(ctx context.Context, imageBytes []byte,
	tags []model.Tag, categories map[int64]*model.TagCategory) (*Result, error) {

	if len(tags) == 0 {
		return &Result{Scores: map[int64]float64{}}, nil
	}

	prompts := make([]string, 0, len(tags)*e.ensembleSize)
	for i := range tags {
		prompts = append(prompts, e.BuildPrompts(&tags[i], categories[tags[i].CategoryID])...)
	}

	scores, err := e.client.Similarity(ctx, imageBytes, prompts)
	if err != nil {
		return nil, err
	}

	confidences, err := e.Reduce(scores, len(tags))
	if err != nil {
		return nil, err
	}

	result := &Result{Scores: make(map[int64]float64, len(tags))}
	for i := range tags {
		tag := &tags[i]
		confidence := confidences[i]
		result.Scores[tag.ID] = confidence

		threshold := tag.EffectiveThreshold(categories[tag.CategoryID], e.floor)
		if confidence >= threshold {
			result.Accepted = append(result.Accepted, TagScore{
				TagID:      tag.ID,
				Name:       tag.Name,
				Confidence: confidence,
			})
		}
	}
	return result, nil
}

// Apply persists a classification result: the image's automatic tag set is
// replaced with the accepted tags in one transaction.
func (e *Engine) Apply(hash string, result *Result) error {
	accepted := make([]model.TagAssociation, 0, len(result.Accepted))
	for _, score := range result.Accepted {
		accepted = append(accepted, model.TagAssociation{
			Hash:       hash,
			TagID:      score.TagID,
			Confidence: score.Confidence,
			Source:     model.SourceAuto,
		})
	}
	return e.tags.ReplaceImageTags(hash, accepted)
}

// ClassifyStored classifies one cataloged image by hash. When the
// classifier call fails the image's prior tag associations stay untouched;
// no partial tag set is ever written.
func (e *Engine) ClassifyStored(ctx context.Context, imgHash string) (*Result, error) {
	img, err := e.images.GetByHash(imgHash)
	if err != nil {
		return nil, err
	}

	imageBytes, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file %s: %w", img.Path, err)
	}

	tags, err := e.tags.ListTags(0)
	if err != nil {
		return nil, err
	}

	categoryList, err := e.tags.ListCategories()
	if err != nil {
		return nil, err
	}
	categories := make(map[int64]*model.TagCategory, len(categoryList))
	for i := range categoryList {
		categories[categoryList[i].ID] = &categoryList[i]
	}

	result, err := e.ClassifyImage(ctx, imageBytes, tags, categories)
	if err != nil {
		return nil, err
	}

	if err := e.Apply(imgHash, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ClassifyBatch classifies many images, isolating per-image failures.
func (e *Engine) ClassifyBatch(ctx context.Context, hashes []string) *BatchReport {
	report := &BatchReport{}
	for _, imgHash := range hashes {
		if ctx.Err() != nil {
			break
		}
		if _, err := e.ClassifyStored(ctx, imgHash); err != nil {
			e.logger.Error("Classification failed for %s: %v", imgHash, err)
			report.Failed++
			if len(report.Failures) < 5 {
				report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", imgHash, err))
			}
			continue
		}
		report.Processed++
	}
	return report
}

// softmax is numerically stabilized by max subtraction.
func softmax(values []float64) []float64 {
	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum float64
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

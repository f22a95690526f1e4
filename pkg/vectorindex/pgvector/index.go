package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"docchat-be/pkg/vectorindex"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CollectionRecord struct {
	Name      string    `gorm:"type:text;primaryKey"`
	Dimension int       `gorm:"not null"`
	Indexed   bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CollectionRecord) TableName() string {
	return "vector_collections"
}

// PointRecord stores vectors of any dimension; the per-collection dimension is
// enforced through CollectionRecord and the cast used by search.
type PointRecord struct {
	Collection string          `gorm:"type:text;primaryKey"`
	PointID    int64           `gorm:"primaryKey;autoIncrement:false"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
	Payload    datatypes.JSON  `gorm:"type:jsonb"`
}

func (PointRecord) TableName() string {
	return "vector_points"
}

type Index struct {
	db *gorm.DB
}

func NewIndex(db *gorm.DB) *Index {
	return &Index{db: db}
}

// Migrate installs the extension and the two backing tables.
func (i *Index) Migrate(ctx context.Context) error {
	if err := i.db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}
	return i.db.WithContext(ctx).AutoMigrate(&CollectionRecord{}, &PointRecord{})
}

func (i *Index) findCollection(ctx context.Context, name string) (*CollectionRecord, error) {
	var rec CollectionRecord
	if err := i.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, vectorindex.ErrCollectionNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (i *Index) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := i.findCollection(ctx, name)
	if errors.Is(err, vectorindex.ErrCollectionNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (i *Index) CreateCollection(ctx context.Context, name string, dimension int) error {
	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&CollectionRecord{Name: name, Dimension: dimension}).Error
}

func (i *Index) CollectionDimension(ctx context.Context, name string) (int, error) {
	rec, err := i.findCollection(ctx, name)
	if err != nil {
		return 0, err
	}
	return rec.Dimension, nil
}

func (i *Index) Upsert(ctx context.Context, name string, points []vectorindex.Point) error {
	records := make([]*PointRecord, len(points))
	for k, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return err
		}
		records[k] = &PointRecord{
			Collection: name,
			PointID:    int64(p.ID),
			Embedding:  pgvector.NewVector(p.Vector),
			Payload:    datatypes.JSON(payload),
		}
	}

	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "point_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "payload"}),
		}).
		Create(&records).Error
}

type scoredRow struct {
	PointID int64
	Payload datatypes.JSON
	Score   float64
}

func (i *Index) Search(ctx context.Context, name string, vector []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error) {
	rec, err := i.findCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != rec.Dimension {
		return nil, vectorindex.ErrDimensionMismatch
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	// cosine similarity = 1 - cosine distance
	expr := castExpr(rec.Dimension)
	queryVector := pgvector.NewVector(vector)

	var rows []scoredRow
	err = i.db.WithContext(ctx).
		Table(PointRecord{}.TableName()).
		Select(fmt.Sprintf("point_id, payload, 1 - (%s <=> ?) AS score", expr), queryVector).
		Where("collection = ?", name).
		Where(fmt.Sprintf("1 - (%s <=> ?) >= ?", expr), queryVector, opts.ScoreThreshold).
		Order("score DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	matches := make([]vectorindex.Match, 0, len(rows))
	for _, row := range rows {
		m := vectorindex.Match{ID: uint64(row.PointID), Score: float32(row.Score)}
		if opts.WithPayload {
			var payload vectorindex.Payload
			if err := json.Unmarshal(row.Payload, &payload); err != nil {
				return nil, fmt.Errorf("decode payload of point %d: %w", row.PointID, err)
			}
			m.Payload = &payload
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (i *Index) DeleteCollection(ctx context.Context, name string) error {
	return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("name = ?", name).Delete(&CollectionRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return vectorindex.ErrCollectionNotFound
		}
		if err := tx.Where("collection = ?", name).Delete(&PointRecord{}).Error; err != nil {
			return err
		}
		return tx.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName(name))).Error
	})
}

// EnableIndexing builds a partial HNSW index over the collection's points.
func (i *Index) EnableIndexing(ctx context.Context, name string) error {
	rec, err := i.findCollection(ctx, name)
	if err != nil {
		return err
	}

	ddl := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON vector_points USING hnsw ((%s) vector_cosine_ops) WHERE collection = %s",
		indexName(name), castExpr(rec.Dimension), quoteLiteral(name),
	)
	if err := i.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return err
	}

	return i.db.WithContext(ctx).
		Model(&CollectionRecord{}).
		Where("name = ?", name).
		Update("indexed", true).Error
}

var unsafeIdent = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func indexName(collection string) string {
	name := "idx_vp_" + strings.ToLower(unsafeIdent.ReplaceAllString(collection, "_"))
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

func castExpr(dimension int) string {
	return fmt.Sprintf("embedding::vector(%d)", dimension)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

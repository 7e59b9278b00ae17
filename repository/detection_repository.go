package repository

import (
	"database/sql"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/facette/natsort"
	"gorm.io/gorm"

	"github.com/talkdigital/courtshoesbackend/analytics"
	"github.com/talkdigital/courtshoesbackend/database"
	"github.com/talkdigital/courtshoesbackend/importer"
	"github.com/talkdigital/courtshoesbackend/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// DetectionRepository handles the raw detection store: batched inserts during
// import and the two flat tabular views the aggregator reads.
type DetectionRepository struct {
	DB *gorm.DB
}

// NewDetectionRepository creates a new instance of DetectionRepository
func NewDetectionRepository(db *gorm.DB) *DetectionRepository {
	return &DetectionRepository{DB: db}
}

// InsertParsedRecords inserts parsed per-image records in batches, each batch
// in its own transaction to keep transactions short. Filenames already
// present for the marathon (or inserted by a previous batch) reuse the
// existing image row; their detections and demographics are appended to it.
// Returns the number of records processed.
func (r *DetectionRepository) InsertParsedRecords(marathonID uint, records []importer.ImageRecord, batchSize int) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	// cache of existing images for this marathon, filename -> image ID
	imageIDCache := make(map[string]uint)
	var existing []models.Image
	if err := r.DB.Select("id", "filename").Where("marathon_id = ?", marathonID).Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to load existing images for marathon %d: %w", marathonID, err)
	}
	for _, img := range existing {
		imageIDCache[img.Filename] = img.ID
	}

	totalProcessed := 0
	for batchStart := 0; batchStart < len(records); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(records) {
			batchEnd = len(records)
		}
		batch := records[batchStart:batchEnd]

		err := r.DB.Transaction(func(tx *gorm.DB) error {
			var demographics []models.PersonDemographic
			var shoes []models.ShoeDetection

			for _, record := range batch {
				imageID, ok := imageIDCache[record.Filename]
				if !ok {
					image := models.Image{
						MarathonID:     marathonID,
						Filename:       record.Filename,
						Category:       record.Category,
						OriginalWidth:  record.OriginalWidth,
						OriginalHeight: record.OriginalHeight,
					}
					if err := tx.Create(&image).Error; err != nil {
						return fmt.Errorf("failed to insert image '%s': %w", record.Filename, err)
					}
					imageID = image.ID
					imageIDCache[record.Filename] = imageID
				}

				if record.Demographic != nil {
					demographics = append(demographics, buildDemographic(imageID, record.Demographic))
				}
				for _, shoe := range record.Shoes {
					shoes = append(shoes, buildShoeDetection(imageID, shoe))
				}
			}

			if len(demographics) > 0 {
				if err := tx.Create(&demographics).Error; err != nil {
					return fmt.Errorf("failed to insert person demographics: %w", err)
				}
			}
			if len(shoes) > 0 {
				if err := tx.Create(&shoes).Error; err != nil {
					return fmt.Errorf("failed to insert shoe detections: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return totalProcessed, err
		}
		totalProcessed += len(batch)
	}

	return totalProcessed, nil
}

func buildDemographic(imageID uint, demo *importer.DemographicRecord) models.PersonDemographic {
	return models.PersonDemographic{
		ImageID:      imageID,
		GenderLabel:  demo.GenderLabel,
		GenderProb:   demo.GenderProb,
		AgeLabel:     demo.AgeLabel,
		AgeProb:      demo.AgeProb,
		RaceLabel:    demo.RaceLabel,
		RaceProb:     demo.RaceProb,
		PersonBboxX1: demo.Bbox[0],
		PersonBboxY1: demo.Bbox[1],
		PersonBboxX2: demo.Bbox[2],
		PersonBboxY2: demo.Bbox[3],
	}
}

func buildShoeDetection(imageID uint, shoe importer.ShoeRecord) models.ShoeDetection {
	return models.ShoeDetection{
		ImageID:     imageID,
		Brand:       shoe.Brand,
		Probability: shoe.Probability,
		Confidence:  shoe.Confidence,
		BboxX1:      shoe.Bbox[0],
		BboxY1:      shoe.Bbox[1],
		BboxX2:      shoe.Bbox[2],
		BboxY2:      shoe.Bbox[3],
	}
}

// DetailRows returns the joined detail view: one row per detection/demographic
// pairing, with both halves left-joined so images without detections or
// demographics still appear
func (r *DetectionRepository) DetailRows(marathonIDs []uint) ([]analytics.DetailRow, error) {
	if len(marathonIDs) == 0 {
		return []analytics.DetailRow{}, nil
	}

	queryBuilder := psql.
		Select(
			"m.id", "m.name", "i.id", "i.filename", "i.category",
			"s.brand", "s.probability", "s.confidence",
			"p.gender_label", "p.age_label", "p.race_label",
		).
		From("marathons m").
		Join("images i ON i.marathon_id = m.id").
		LeftJoin("shoe_detections s ON s.image_id = i.id").
		LeftJoin("person_demographics p ON p.image_id = i.id").
		Where(sq.Eq{"m.id": marathonIDs})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build detail rows query: %w", err)
	}

	rows, err := r.DB.Raw(sqlStr, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query detail rows: %w", err)
	}
	defer rows.Close()

	var result []analytics.DetailRow
	for rows.Next() {
		var (
			row         analytics.DetailRow
			category    sql.NullString
			brand       sql.NullString
			probability sql.NullFloat64
			confidence  sql.NullFloat64
			genderLabel sql.NullString
			ageLabel    sql.NullString
			raceLabel   sql.NullString
		)
		if err := rows.Scan(
			&row.MarathonID, &row.MarathonName, &row.ImageID, &row.Filename, &category,
			&brand, &probability, &confidence,
			&genderLabel, &ageLabel, &raceLabel,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detail row: %w", err)
		}
		row.Category = nullableString(category)
		row.Brand = nullableString(brand)
		row.Probability = nullableFloat(probability)
		row.Confidence = nullableFloat(confidence)
		row.PersonGender = nullableString(genderLabel)
		row.PersonAge = nullableString(ageLabel)
		row.PersonRace = nullableString(raceLabel)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating detail rows: %w", err)
	}
	return result, nil
}

// PresenceRows returns one row per physical image with a has_demographics
// flag, used for distinct counting only
func (r *DetectionRepository) PresenceRows(marathonIDs []uint) ([]analytics.PresenceRow, error) {
	if len(marathonIDs) == 0 {
		return []analytics.PresenceRow{}, nil
	}

	queryBuilder := psql.
		Select(
			"m.id", "m.name", "i.filename", "i.category",
			"EXISTS(SELECT 1 FROM person_demographics pd WHERE pd.image_id = i.id) AS has_demographics",
		).
		From("marathons m").
		Join("images i ON i.marathon_id = m.id").
		Where(sq.Eq{"m.id": marathonIDs})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build presence rows query: %w", err)
	}

	rows, err := r.DB.Raw(sqlStr, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query presence rows: %w", err)
	}
	defer rows.Close()

	var result []analytics.PresenceRow
	for rows.Next() {
		var (
			row      analytics.PresenceRow
			category sql.NullString
		)
		if err := rows.Scan(&row.MarathonID, &row.MarathonName, &row.Filename, &category, &row.HasDemographics); err != nil {
			return nil, fmt.Errorf("failed to scan presence row: %w", err)
		}
		row.Category = nullableString(category)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presence rows: %w", err)
	}
	return result, nil
}

// ListImagesByMarathon returns a marathon's images in the requested order;
// filenames like img_2.jpg / img_10.jpg sort naturally by default
func (r *DetectionRepository) ListImagesByMarathon(marathonID uint, sortOrder string) ([]models.Image, error) {
	if !database.IsValidSortOrder(sortOrder) {
		sortOrder = database.DefaultSortOrder
	}

	var images []models.Image
	if err := r.DB.Where("marathon_id = ?", marathonID).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images for marathon %d: %w", marathonID, err)
	}

	switch sortOrder {
	case database.SortFilenameAsc:
		sort.Slice(images, func(i, j int) bool { return images[i].Filename < images[j].Filename })
	case database.SortCategory:
		sort.Slice(images, func(i, j int) bool {
			ci, cj := "", ""
			if images[i].Category != nil {
				ci = *images[i].Category
			}
			if images[j].Category != nil {
				cj = *images[j].Category
			}
			if ci != cj {
				return ci < cj
			}
			return natsort.Compare(images[i].Filename, images[j].Filename)
		})
	default:
		sort.Slice(images, func(i, j int) bool { return natsort.Compare(images[i].Filename, images[j].Filename) })
	}
	return images, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

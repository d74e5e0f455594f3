package fileshare

import (
	"time"

	"github.com/NiceTop1027/file.dyhs.kr/internal/models"
)

// NoUploadsType is the MostUploadedType sentinel for an empty store.
const NoUploadsType = "none"

// AggregateStatistics derives summary statistics from a record
// snapshot. An empty snapshot yields zero-valued fields with the
// "none" type sentinel. Uploads "today" are counted against the local
// calendar day; type ties break toward the first-encountered type.
func AggregateStatistics(files []*models.FileRecord, now time.Time) *models.UploadStatistics {
	stats := &models.UploadStatistics{MostUploadedType: NoUploadsType}
	if len(files) == 0 {
		return stats
	}

	year, month, day := now.Date()
	typeCounts := make(map[string]int)
	var typeOrder []string

	for _, rec := range files {
		stats.TotalUploads++
		stats.TotalSize += rec.Size

		uy, um, ud := rec.UploadedAt.Local().Date()
		if uy == year && um == month && ud == day {
			stats.UploadsToday++
		}

		mimeType := rec.Type
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		if _, seen := typeCounts[mimeType]; !seen {
			typeOrder = append(typeOrder, mimeType)
		}
		typeCounts[mimeType]++
	}

	stats.AverageFileSize = stats.TotalSize / int64(stats.TotalUploads)

	best := 0
	for _, mimeType := range typeOrder {
		if typeCounts[mimeType] > best {
			best = typeCounts[mimeType]
			stats.MostUploadedType = mimeType
		}
	}

	return stats
}

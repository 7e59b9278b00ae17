package analytics

// DetailRow is one row of the joined detail view: marathon ⋈ image with the
// shoe detection and person demographic halves left-joined in. Either half
// may be entirely absent (nil fields) for images with no detection or no
// demographic analysis, and an image with several shoes yields several rows.
type DetailRow struct {
	MarathonID   uint
	MarathonName string
	ImageID      uint
	Filename     string
	Category     *string
	Brand        *string
	Probability  *float64
	Confidence   *float64
	PersonGender *string
	PersonAge    *string
	PersonRace   *string
}

// PresenceRow is one row per physical image, used purely for distinct
// counting. It is decoupled from the multi-row DetailRow view so that images
// with zero or multiple detections are counted exactly once.
type PresenceRow struct {
	MarathonID      uint
	MarathonName    string
	Filename        string
	Category        *string
	HasDemographics bool
}

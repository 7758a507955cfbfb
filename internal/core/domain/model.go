package domain

// Upload is one image as it arrived at the boundary, before any processing.
type Upload struct {
	Filename string
	Data     []byte
}

// FilterRequest carries the filter parameters shared by every image in one call.
type FilterRequest struct {
	Filter         string
	Strength       int
	SizeMultiplier float64
}

const (
	DefaultFilter         = "BLUR"
	DefaultStrength       = 5
	DefaultSizeMultiplier = 1.0
)

// ImageRecord is the stored result of one successful transform. Records are
// immutable once created and live for the lifetime of the process.
type ImageRecord struct {
	ID             string
	Data           []byte
	Format         string
	Filter         string
	Strength       int
	SizeMultiplier float64
	Owner          string
}

// ResultEntry is the per-image outcome inside a batch report. A failed entry
// carries the filename and error text only; a successful one carries the
// stored id and the result as a base64 data URI.
type ResultEntry struct {
	Filename       string
	Filter         string
	Strength       int
	SizeMultiplier float64
	ImageID        string
	Image          string
	Err            string
}

func (e ResultEntry) Failed() bool {
	return e.Err != ""
}

// BatchReport aggregates the outcomes of one processing call, in completion
// order. Processed+Errored always equals the number of submitted uploads.
type BatchReport struct {
	Processed int
	Errored   int
	Results   []ResultEntry
}

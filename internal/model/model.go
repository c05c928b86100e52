// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

//---------------------

// Photo is a signing task: the uploaded original, the options it was uploaded with and,
// once done, the chosen sign and the result object.
type Photo struct {
	UID       uuid.UUID   `json:"uid"`
	SourceKey string      `json:"-"`
	ResultKey string      `json:"-"`
	Options   SignOptions `json:"options"`
	Status    Status      `json:"status,omitempty"`
	SignName  *string     `json:"sign,omitempty"`
	Distance  *float64    `json:"distance,omitempty"`
	ErrMsg    StringSlice `json:"error,omitempty"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// OrphanAfter is how long a created or in_progress task may stay untouched before it is
// published again. A worker receiving an in_progress task older than that takes it over.
const OrphanAfter = 10 * time.Minute

// Stale reports whether the task was last touched more than OrphanAfter before now.
func (p *Photo) Stale(now time.Time) bool {
	return p.UpdatedAt == nil || now.Sub(*p.UpdatedAt) >= OrphanAfter
}

// SignOptions are the per-photo placement and drawing options, stored as JSONB.
type SignOptions struct {
	Corner    string  `json:"corner"`
	Margin    int     `json:"margin"`
	ScaleRate float64 `json:"scale_rate,omitempty"`
	SignRatio float64 `json:"sign_ratio,omitempty"`
	AutoColor bool    `json:"auto_color"`
	AutoScale bool    `json:"auto_scale"`
	MaxSide   int     `json:"max_side,omitempty"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// PhotoCreateData is the raw upload: form values are validated and parsed by the service.
type PhotoCreateData struct {
	Corner    string
	Margin    string
	ScaleRate string
	SignRatio string
	AutoColor string
	AutoScale string
	MaxSide   string

	Img            multipart.File
	ImgContentType string
	ImgSize        int64
}

// ------------------

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later") // 500
	ErrIncorrectQuery    error = errors.New("incorrect query parameters")            // 400
	ErrIncorrectID       error = errors.New("incorrect photo UUID")                  // 400
	ErrPhotoNotFound     error = errors.New("specified photo UUID doesn't exist")    // 404
	ErrResultNotReady    error = errors.New("requested photo is not signed yet")     // 404
	ErrEmptySource       error = errors.New("empty/incorrect source photo provided") // 400
	ErrIncorrectOptions  error = errors.New("incorrect sign options provided")       // 400
	ErrIncorrectStatus   error = errors.New("incorrect status provided")             // 400
	ErrUnsupportedFormat error = errors.New("unsupported photo format")              // 400
	ErrNoSuitableSign    error = errors.New("no sign is visible enough on this photo")
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	BMP  = "image/bmp"
	TIFF = "image/tiff"
	WEBP = "image/webp"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	BMP:  ".bmp",
	TIFF: ".tiff",
	WEBP: ".webp",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
	BMP:  true,
	TIFF: true,
	WEBP: true,
}

// GetCType maps a result encoder to its content type. WebP sources are re-encoded as PNG.
var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
	imaging.BMP:  BMP,
	imaging.TIFF: TIFF,
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}

func (o *SignOptions) Scan(value any) error {
	if value == nil {
		*o = SignOptions{}
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("invalid type %T for SignOptions", value)
	}

	if err := json.Unmarshal(b, o); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to SignOptions: %w", err)
	}
	return nil
}

func (o SignOptions) Value() (driver.Value, error) {
	res, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SignOptions to JSONB: %w", err)
	}
	return res, nil
}

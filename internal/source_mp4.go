package internal

import (
	"fmt"
	"os"
	"time"

	mp4 "github.com/abema/go-mp4"
	"github.com/gabriel-vasile/mimetype"
)

// mp4EpochOffset is the number of seconds between 1904-01-01 and 1970-01-01.
const mp4EpochOffset = 2082844800

const zeroExifDate = "0000:00:00 00:00:00"

var isoBMFFTypes = []string{
	"video/mp4",
	"video/quicktime",
	"video/3gpp",
	"video/3gpp2",
	"video/x-m4v",
	"audio/mp4",
}

// MP4Source reads movie, track and media header times from ISO-BMFF
// containers (mp4, mov, 3gp) using github.com/abema/go-mp4.
type MP4Source struct{}

func NewMP4Source() *MP4Source {
	return &MP4Source{}
}

func (s *MP4Source) Name() string { return BackendMP4 }

func (s *MP4Source) Extract(path string) (map[string]string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, err
	}
	if !mimetype.EqualsAny(mt.String(), isoBMFFTypes...) {
		return nil, fmt.Errorf("%s is not an ISO-BMFF container: %w", mt.String(), ErrUnsupported)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	boxes, err := mp4.ExtractBoxesWithPayload(f, nil, []mp4.BoxPath{
		{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()},
		{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeTkhd()},
		{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMdhd()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read mp4 structure: %w", err)
	}

	bag := make(map[string]string)
	put := func(key string, secs uint64) {
		if _, ok := bag[key]; ok {
			return
		}
		bag[key] = formatMP4Time(secs)
	}
	for _, box := range boxes {
		switch p := box.Payload.(type) {
		case *mp4.Mvhd:
			put("CreateDate", p.GetCreationTime())
			put("ModifyDate", p.GetModificationTime())
		case *mp4.Tkhd:
			put("TrackCreateDate", p.GetCreationTime())
			put("TrackModifyDate", p.GetModificationTime())
		case *mp4.Mdhd:
			put("MediaCreateDate", p.GetCreationTime())
			put("MediaModifyDate", p.GetModificationTime())
		}
	}
	if len(bag) == 0 {
		return nil, fmt.Errorf("no movie header found: %w", ErrUnsupported)
	}
	return bag, nil
}

// formatMP4Time renders a 1904-epoch second count the way exiftool does.
func formatMP4Time(secs uint64) string {
	if secs < mp4EpochOffset {
		return zeroExifDate
	}
	return time.Unix(int64(secs-mp4EpochOffset), 0).UTC().Format("2006:01:02 15:04:05")
}

package subtitles

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/autosub/internal/types"
)

// ParseSRTRegions reads the cue timings of an SRT document back into regions.
// Blocks without a valid timing line are skipped. Regions are re-indexed in
// start order.
func ParseSRTRegions(r io.Reader) ([]types.Region, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var regions []types.Region
	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.SplitN(line, "-->", 2)
		start, err := parseSRTTimestamp(parts[0])
		if err != nil {
			continue
		}
		// Trailing cue settings (VTT style) follow the end time.
		endField := strings.Fields(parts[1])
		if len(endField) == 0 {
			continue
		}
		end, err := parseSRTTimestamp(endField[0])
		if err != nil || end <= start {
			continue
		}
		regions = append(regions, types.Region{Start: start, End: end})
	}
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })
	for i := range regions {
		regions[i].Index = i
	}
	return regions, nil
}

func parseSRTTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) == 2 {
		hms = append([]string{"0"}, hms...)
	}
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := fractionMillis(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// fractionMillis reads the 1 to 3 digits after the decimal separator as a
// fraction of a second, so ",5" is 500ms.
func fractionMillis(frac string) (int, error) {
	if frac == "" || len(frac) > 3 {
		return 0, fmt.Errorf("invalid fraction %q", frac)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid fraction %q", frac)
		}
	}
	return strconv.Atoi(frac + strings.Repeat("0", 3-len(frac)))
}

// Package subtitles turns per-region transcription results into ordered cues
// and serializes them.
package subtitles

import (
	"sort"
	"strings"

	"github.com/forPelevin/autosub/internal/types"
)

// Assemble pairs every region with its result by index. Regions whose result
// failed, or has no result at all, still produce a cue with empty text so
// timing gaps stay visible. The output has one cue per region, ordered by
// start time and then index.
func Assemble(regions []types.Region, results []types.TranscriptionResult) []types.Cue {
	byIndex := make(map[int]types.TranscriptionResult, len(results))
	for _, r := range results {
		byIndex[r.Index] = r
	}

	cues := make([]types.Cue, 0, len(regions))
	for _, region := range regions {
		cue := types.Cue{Index: region.Index, Start: region.Start, End: region.End}
		if res, ok := byIndex[region.Index]; ok && res.OK() {
			cue.Text = res.Text
		}
		cues = append(cues, cue)
	}
	sort.SliceStable(cues, func(i, j int) bool {
		if cues[i].Start != cues[j].Start {
			return cues[i].Start < cues[j].Start
		}
		return cues[i].Index < cues[j].Index
	})
	return cues
}

// Failures returns the failed results in index order.
func Failures(results []types.TranscriptionResult) []types.TranscriptionResult {
	var out []types.TranscriptionResult
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := lines[:0]
	for _, ln := range lines {
		// A blank line would end the cue early in SRT and VTT.
		if ln = strings.TrimSpace(ln); ln != "" {
			kept = append(kept, ln)
		}
	}
	return strings.Join(kept, "\n")
}

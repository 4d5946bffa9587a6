package preprocess

import (
	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/token"
)

// MissingSpans returns the regions of file covered by the unprocessed
// tokens but by none of the processed ones: the text a pipeline dropped.
// Together with the processed tokens' own ranges the result tiles
// [first(unprocessed).Start, last(unprocessed).End).
func MissingSpans(file int, unprocessed, processed []token.Token) []models.Span {
	if len(unprocessed) == 0 {
		return nil
	}

	var spans []models.Span
	cursor := unprocessed[0].Start
	for _, t := range processed {
		if t.Start > cursor {
			spans = append(spans, models.Span{File: file, Start: cursor, End: t.Start})
		}
		if t.End > cursor {
			cursor = t.End
		}
	}
	if end := unprocessed[len(unprocessed)-1].End; cursor < end {
		spans = append(spans, models.Span{File: file, Start: cursor, End: end})
	}
	return spans
}

package normalize

import (
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const isoDate = "2006-01-02"

var (
	relParser *when.Parser
	relOnce   sync.Once
)

func relativeParser() *when.Parser {
	relOnce.Do(func() {
		relParser = when.New(nil)
		relParser.Add(en.All...)
		relParser.Add(common.All...)
	})
	return relParser
}

// ISODate normalizes human-readable date text into YYYY-MM-DD form.
// Absolute forms go through dateparse; relative phrases such as
// "3 weeks ago" resolve against now. Unparseable or empty text yields
// an empty string, never an error.
func ISODate(text string, now time.Time) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if t, err := dateparse.ParseAny(text); err == nil {
		return t.Format(isoDate)
	}
	if r, err := relativeParser().Parse(text, now); err == nil && r != nil {
		return r.Time.Format(isoDate)
	}
	return ""
}

package dataparser

import (
	"bufio"
	"math"
	"strconv"
	"strings"
	"unicode"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/logging"
	"netsim-consolidate/internal/metric"
	"netsim-consolidate/internal/runset"

	"github.com/sirupsen/logrus"
)

const maxLineBytes = 1 << 20

// RawMarkLine is one "<time> <reason>" line of a queue mark log.
type RawMarkLine struct {
	Time   float64
	Reason string
}

type keywordRule struct {
	needle string
	metric metric.Name
}

// MarkExtractor classifies queue mark log lines into counted events. Only
// keywords mapped to emitted metrics produce records; drop keywords are
// recognized through the catalog but never emitted.
type MarkExtractor struct {
	file  string
	rules []keywordRule
	order []metric.Name
}

func NewMarkExtractor(cfg config.MarksConfig) *MarkExtractor {
	me := &MarkExtractor{file: cfg.File}
	seen := make(map[metric.Name]bool)
	for _, kw := range cfg.Keywords {
		def, ok := metric.Lookup(kw.Metric)
		if !ok || !def.Emitted {
			continue
		}
		me.rules = append(me.rules, keywordRule{needle: strings.ToLower(kw.Keyword), metric: kw.Metric})
		if !seen[kw.Metric] {
			seen[kw.Metric] = true
			me.order = append(me.order, kw.Metric)
		}
	}
	return me
}

func (me *MarkExtractor) Name() string {
	return "marks"
}

func (me *MarkExtractor) Extract(run runset.Run) []Outcome {
	return []Outcome{me.extract(run)}
}

func (me *MarkExtractor) extract(run runset.Run) Outcome {
	logger := logging.GetRunLogger()

	f, status, err := openInput(run.Path(me.file))
	switch status {
	case StatusAbsent:
		return absent(me.Name(), run, me.file)
	case StatusFailed:
		return failed(me.Name(), run, me.file, err)
	}
	defer f.Close()

	byMetric := make(map[metric.Name][]metric.Record)
	dropped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		line, ok := ParseMarkLine(text)
		if !ok {
			dropped++
			continue
		}
		for _, m := range me.Classify(line.Reason) {
			byMetric[m] = append(byMetric[m], metric.Record{Time: line.Time, Value: 1.0, RunID: run.ID})
		}
	}
	if err := scanner.Err(); err != nil {
		return failed(me.Name(), run, me.file, err)
	}

	out := Outcome{Extractor: me.Name(), RunID: run.ID, File: me.file, Status: StatusOK, Dropped: dropped}
	for _, m := range me.order {
		if records := byMetric[m]; len(records) > 0 {
			out.Batches = append(out.Batches, Batch{Metric: m, RunID: run.ID, Records: records})
		}
	}

	logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"file":    me.file,
		"rows":    out.Rows(),
		"dropped": dropped,
	}).Debug("Extracted mark events")

	return out
}

// Classify returns the emitted metrics whose keywords the reason contains,
// case-insensitively. Each metric appears at most once.
func (me *MarkExtractor) Classify(reason string) []metric.Name {
	lower := strings.ToLower(reason)
	var matched []metric.Name
	for _, rule := range me.rules {
		if !strings.Contains(lower, rule.needle) {
			continue
		}
		dup := false
		for _, m := range matched {
			if m == rule.metric {
				dup = true
				break
			}
		}
		if !dup {
			matched = append(matched, rule.metric)
		}
	}
	return matched
}

// ParseMarkLine splits a line into a leading numeric time token and the
// remaining free-text reason. Lines without both parts, or whose time is not
// numeric, are rejected.
func ParseMarkLine(line string) (RawMarkLine, bool) {
	trimmed := strings.TrimSpace(line)
	idx := strings.IndexFunc(trimmed, unicode.IsSpace)
	if idx < 0 {
		return RawMarkLine{}, false
	}
	t, err := strconv.ParseFloat(trimmed[:idx], 64)
	if err != nil || math.IsNaN(t) {
		return RawMarkLine{}, false
	}
	reason := strings.TrimLeftFunc(trimmed[idx:], unicode.IsSpace)
	return RawMarkLine{Time: t, Reason: reason}, true
}

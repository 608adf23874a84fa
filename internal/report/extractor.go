// File: internal/report/extractor.go
package report

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Failure holds the normalized data for a single failing test case.
type Failure struct {
	Message   string
	File      string
	Line      int
	TestName  string
	ErrorType string
	ClassName string
}

// lineFromMessageRegex recovers a line number from failure text such as
// "src/Calculator.php:42" when the report carries no structured line attribute.
var lineFromMessageRegex = regexp.MustCompile(`([^\s:]+\.[A-Za-z0-9_]+):(\d+)`)

// Extractor parses JUnit-style XML reports produced by PHPUnit.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an extractor. A nil logger falls back to a no-op.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger.Named("report")}
}

// Extract walks the suite/case hierarchy and returns the failures in document
// order, oldest first. Malformed input never propagates an error to the caller;
// it yields an empty slice and a logged diagnostic.
func (e *Extractor) Extract(xmlContent []byte) []Failure {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlContent); err != nil {
		e.logger.Warn("Failed to parse test report XML, treating as zero failures.", zap.Error(err))
		return nil
	}

	var failures []Failure
	for _, testcase := range doc.FindElements("//testcase") {
		element := testcase.FindElement("./failure")
		if element == nil {
			element = testcase.FindElement("./error")
		}
		if element == nil {
			continue
		}

		line, _ := strconv.Atoi(testcase.SelectAttrValue("line", "0"))
		message := strings.TrimSpace(element.Text())

		// The structured line attribute is often missing for assertion
		// failures; fall back to the last path:line token in the message.
		if line == 0 && message != "" {
			if matches := lineFromMessageRegex.FindAllStringSubmatch(message, -1); len(matches) > 0 {
				last := matches[len(matches)-1]
				line, _ = strconv.Atoi(last[2])
			}
		}

		failures = append(failures, Failure{
			Message:   message,
			File:      testcase.SelectAttrValue("file", ""),
			Line:      line,
			TestName:  testcase.SelectAttrValue("name", ""),
			ErrorType: element.SelectAttrValue("type", ""),
			ClassName: testcase.SelectAttrValue("class", ""),
		})
	}

	if len(failures) == 0 {
		e.logger.Debug("Test report contained no failure or error elements.")
	}
	return failures
}

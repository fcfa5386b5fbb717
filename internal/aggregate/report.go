package aggregate

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"
)

// jsonReport is the on-disk shape written by --report-json. It flattens
// SessionOutcome's worker outcomes into one record per nodeid, the
// direct descendant of the teacher's regression.Result
// {TaskID, Success, Output, Error, DurationMs} shape, generalized from
// one row per shell task to one row per nodeid.
type jsonReport struct {
	ExitCode  int              `json:"exit_code"`
	Cancelled bool             `json:"cancelled"`
	TimedOut  bool             `json:"timed_out"`
	Tests     []jsonTestResult `json:"tests"`
	Errors    []jsonCollectionError `json:"collection_errors"`
}

type jsonTestResult struct {
	Nodeid     string `json:"nodeid"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
}

type jsonCollectionError struct {
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WriteJSON serializes a SessionOutcome as JSON (--report-json).
func WriteJSON(s SessionOutcome) ([]byte, error) {
	report := jsonReport{
		ExitCode:  s.ExitCode,
		Cancelled: s.Cancelled,
		TimedOut:  s.TimedOut,
	}
	for _, o := range s.WorkerOutcomes {
		success := o.ExitCode == 0
		durationMs := o.Duration.Milliseconds()
		for _, id := range o.Nodeids {
			report.Tests = append(report.Tests, jsonTestResult{
				Nodeid:     string(id),
				Success:    success,
				DurationMs: durationMs,
			})
		}
	}
	for _, e := range s.CollectionErrors {
		report.Errors = append(report.Errors, jsonCollectionError{
			File:    e.File,
			Kind:    string(e.Kind),
			Message: e.Message,
		})
	}
	return json.MarshalIndent(report, "", "  ")
}

// junitTestSuites is the root element of a JUnit-XML report, the
// format CI dashboards (GitHub Actions, GitLab, Jenkins) consume
// uniformly regardless of the tool that produced it.
type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Tests   int              `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Suite   junitTestSuite   `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Cases    []junitTestCase  `xml:"testcase"`
}

type junitTestCase struct {
	Name      string       `xml:"name,attr"`
	ClassName string       `xml:"classname,attr"`
	Time      string       `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

// WriteJUnitXML serializes a SessionOutcome as JUnit-XML (--report-junit).
func WriteJUnitXML(s SessionOutcome) ([]byte, error) {
	suite := junitTestSuite{Name: "rtest"}
	for _, o := range s.WorkerOutcomes {
		failed := o.ExitCode != 0
		for _, id := range o.Nodeids {
			tc := junitTestCase{
				Name:      string(id),
				ClassName: "rtest",
				Time:      durationSeconds(o.Duration),
			}
			if failed {
				tc.Failure = &junitFailure{Message: o.Stderr}
				suite.Failures++
			}
			suite.Cases = append(suite.Cases, tc)
			suite.Tests++
		}
	}

	root := junitTestSuites{Tests: suite.Tests, Failures: suite.Failures, Suite: suite}
	body, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func durationSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

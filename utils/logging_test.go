package utils

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestPackageLoggerFollowsOutput(t *testing.T) {
	logger := PackageLogger("test")

	var buf bytes.Buffer
	output.set(&buf)
	defer InitLogger("info", false)

	logger.Info().Str(LogFunc, "TestPackageLoggerFollowsOutput").Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if entry[LogPackage] != "test" || entry["message"] != "hello" || entry["time"] == nil {
		t.Fatalf("entry = %v", entry)
	}
}

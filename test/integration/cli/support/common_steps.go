package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

// aQRCodeImageContaining writes a QR code PNG into the temp directory.
func (testCtx *TestContext) aQRCodeImageContaining(name, content string) error {
	img, err := testutil.QRImage(content)
	if err != nil {
		return err
	}
	return testutil.SaveImageFile(img, testCtx.TempPath(name))
}

// aCode128ImageContaining writes a Code 128 PNG into the temp directory.
func (testCtx *TestContext) aCode128ImageContaining(name, content string) error {
	img, err := testutil.Code128Image(content, 400, 120)
	if err != nil {
		return err
	}
	return testutil.SaveImageFile(img, testCtx.TempPath(name))
}

// aBlankImage writes an image without any symbol.
func (testCtx *TestContext) aBlankImage(name string) error {
	return testutil.SaveImageFile(testutil.BlankImage(320, 240), testCtx.TempPath(name))
}

// aFileContaining writes arbitrary text, e.g. a corrupt image or a config file.
func (testCtx *TestContext) aFileContaining(name string, content *godog.DocString) error {
	path := testCtx.TempPath(name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content.Content), 0o600)
}

// aPDFWithQRCodesContaining builds a PDF with one QR code page per value.
func (testCtx *TestContext) aPDFWithQRCodesContaining(name, values string) error {
	dir := testCtx.TempPath(strings.TrimSuffix(name, filepath.Ext(name)) + "-pages")
	if err := testutil.EnsureDir(dir); err != nil {
		return err
	}
	var pages []image.Image
	for _, v := range strings.Split(values, ",") {
		img, err := testutil.QRImage(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		pages = append(pages, img)
	}
	built, err := testutil.WritePDFFile(dir, filepath.Base(name), pages...)
	if err != nil {
		return err
	}
	return os.Rename(built, testCtx.TempPath(name))
}

// theEnvironmentVariableIsSetTo sets an environment variable for later commands.
func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substituteCommandVariables(value))
	return nil
}

// iRunCommand runs a command line in the module root.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastStdout = stdout.String()
	testCtx.LastOutput = stdout.String() + stderr.String()
	testCtx.LastError = err

	testCtx.LastExitCode = 0
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies stdout or stderr contains text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	expectedText = testCtx.substituteCommandVariables(expectedText)
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldNotContain verifies stdout and stderr lack text.
func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// theStandardOutputShouldBe compares stdout exactly.
func (testCtx *TestContext) theStandardOutputShouldBe(expected *godog.DocString) error {
	want := strings.TrimRight(expected.Content, "\n") + "\n"
	if testCtx.LastStdout != want {
		return fmt.Errorf("stdout mismatch\nwant: %q\n got: %q", want, testCtx.LastStdout)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies stdout is a JSON document.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &v); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastStdout)
	}
	return nil
}

// theJSONShouldContain verifies a dotted path exists in the JSON output.
// Numeric segments index arrays, e.g. "barcodes.0.value".
func (testCtx *TestContext) theJSONShouldContain(path string) error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &v); err != nil {
		return fmt.Errorf("output is not valid JSON: %w", err)
	}
	if _, err := lookupJSON(v, path); err != nil {
		return err
	}
	return nil
}

// theJSONFieldShouldBe compares the string form of a JSON value.
func (testCtx *TestContext) theJSONFieldShouldBe(path, expected string) error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &v); err != nil {
		return fmt.Errorf("output is not valid JSON: %w", err)
	}
	got, err := lookupJSON(v, path)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != expected {
		return fmt.Errorf("JSON field %s is %v, want %s", path, got, expected)
	}
	return nil
}

// theOutputShouldBeValidCSVWithHeader verifies stdout parses as CSV with the given first column.
func (testCtx *TestContext) theOutputShouldBeValidCSVWithHeader(first string) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastStdout)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(records) == 0 || records[0][0] != first {
		return fmt.Errorf("CSV header does not start with %q: %v", first, records)
	}
	return nil
}

// theFileShouldExist verifies a file under the temp directory exists.
func (testCtx *TestContext) theFileShouldExist(name string) error {
	if !testutil.FileExists(testCtx.TempPath(name)) {
		return fmt.Errorf("file %s does not exist", name)
	}
	return nil
}

// theFileShouldContain verifies a temp file contains text.
func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.TempPath(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", name, expected, data)
	}
	return nil
}

// lookupJSON walks a dotted path through decoded JSON.
func lookupJSON(v any, path string) (any, error) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("JSON field %q not found in %s", part, path)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("JSON index %q out of range in %s", part, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("JSON path %s descends into a scalar at %q", path, part)
		}
	}
	return cur, nil
}

func (testCtx *TestContext) registerFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code image "([^"]*)" containing "([^"]*)"$`, testCtx.aQRCodeImageContaining)
	sc.Step(`^a Code 128 image "([^"]*)" containing "([^"]*)"$`, testCtx.aCode128ImageContaining)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a file "([^"]*)" containing:$`, testCtx.aFileContaining)
	sc.Step(`^a PDF "([^"]*)" with QR codes containing "([^"]*)"$`, testCtx.aPDFWithQRCodesContaining)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}

func (testCtx *TestContext) registerCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
}

func (testCtx *TestContext) registerOutputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the standard output should be:$`, testCtx.theStandardOutputShouldBe)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the output should be valid CSV with header "([^"]*)"$`, testCtx.theOutputShouldBeValidCSVWithHeader)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

// RegisterCommonSteps registers the fixture, command and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	testCtx.registerFixtureSteps(sc)
	testCtx.registerCommandSteps(sc)
	testCtx.registerOutputSteps(sc)
}

// main package for the tts-client, a command-line front end for the batch
// service: it submits text, reports the generated files and downloads the
// batch archive.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/book-expert/logger"
)

// Flag names and descriptions.
const (
	flagServer      = "server"
	flagText        = "text"
	flagFile        = "file"
	flagOutput      = "output"
	flagHealth      = "health"
	flagTimeout     = "timeout"
	flagServerDesc  = "Base URL of the tts-batch-service"
	flagTextDesc    = "Text to convert to speech, one file per line"
	flagFileDesc    = "Text file to convert to speech, one file per line"
	flagOutputDesc  = "Where to save the batch archive (defaults to audio_files_<batch>.zip)"
	flagHealthDesc  = "Check the service and its speech backend, then exit"
	flagTimeoutDesc = "Overall request timeout"
	defaultServer   = "http://127.0.0.1:5000"
	defaultTimeout  = 10 * time.Minute
)

// Error and log messages.
const (
	errEitherTextOrFile   = "either --text or --file must be provided"
	errCannotSpecifyBoth  = "cannot specify both --text and --file"
	errFmtServiceResponse = "service responded %s: %s"
	logFmtSubmitted       = "Submitted %d bytes of text to %s"
	logFmtBatchCreated    = "Batch %s created with %d files"
	logFmtArchiveSaved    = "Archive saved to %s (%d bytes)"
	logFileName           = "tts-client.log"
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server  string
	text    string
	file    string
	output  string
	health  bool
	timeout time.Duration
}

type batchFile struct {
	LineNumber int    `json:"line_number"`
	Text       string `json:"text"`
	FilePath   string `json:"file_path"`
}

type batchResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	BatchID    string      `json:"batch_id"`
	TotalLines int         `json:"total_lines"`
	Files      []batchFile `json:"files"`
	Error      string      `json:"error"`
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	log, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() { _ = log.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	client := &http.Client{}
	server := strings.TrimRight(flags.server, "/")

	if flags.health {
		return checkHealth(ctx, client, server, out)
	}

	validateErr := validateFlags(flags)
	if validateErr != nil {
		return validateErr
	}

	text, err := readText(flags)
	if err != nil {
		return err
	}

	log.Info(logFmtSubmitted, len(text), server)

	result, err := submit(ctx, client, server, text)
	if err != nil {
		log.Error("Submission failed: %v", err)

		return err
	}

	log.Info(logFmtBatchCreated, result.BatchID, len(result.Files))

	for _, file := range result.Files {
		fmt.Fprintf(out, "%3d  %s  %s\n", file.LineNumber, file.FilePath, file.Text)
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = fmt.Sprintf("audio_files_%s.zip", result.BatchID)
	}

	size, err := downloadArchive(ctx, client, server, result.BatchID, outputPath)
	if err != nil {
		log.Error("Archive download failed: %v", err)

		return err
	}

	log.Info(logFmtArchiveSaved, outputPath, size)
	fmt.Fprintf(out, "Saved %s\n", outputPath)

	return nil
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("tts-client", flag.ContinueOnError)
	flagSet.StringVar(&flags.server, flagServer, defaultServer, flagServerDesc)
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.StringVar(&flags.file, flagFile, "", flagFileDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flagSet.DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return flags, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, nil
}

// validateFlags checks for required and conflicting arguments.
func validateFlags(flags appFlags) error {
	if flags.text == "" && flags.file == "" {
		return errors.New(errEitherTextOrFile)
	}

	if flags.text != "" && flags.file != "" {
		return errors.New(errCannotSpecifyBoth)
	}

	return nil
}

func readText(flags appFlags) (string, error) {
	if flags.text != "" {
		return flags.text, nil
	}

	data, err := os.ReadFile(flags.file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", flags.file, err)
	}

	return string(data), nil
}

func submit(ctx context.Context, client *http.Client, server, text string) (*batchResponse, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", server, err)
	}
	defer resp.Body.Close()

	var result batchResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode != http.StatusOK {
		detail := result.Error
		if decodeErr != nil || detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}

		return nil, fmt.Errorf(errFmtServiceResponse, resp.Status, detail)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return &result, nil
}

func downloadArchive(ctx context.Context, client *http.Client, server, batchID, outputPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"/api/download-all/"+batchID, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return 0, fmt.Errorf(errFmtServiceResponse, resp.Status, strings.TrimSpace(string(body)))
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outputPath, err)
	}

	size, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()

	if copyErr != nil {
		return size, fmt.Errorf("failed to save archive: %w", copyErr)
	}

	if closeErr != nil {
		return size, fmt.Errorf("failed to close %s: %w", outputPath, closeErr)
	}

	return size, nil
}

func checkHealth(ctx context.Context, client *http.Client, server string, out io.Writer) error {
	for _, path := range []string{"/api/health", "/api/health/backend"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+path, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create health request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("health check failed for %s: %w", server, err)
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf(errFmtServiceResponse, resp.Status, strings.TrimSpace(string(body)))
		}

		fmt.Fprintf(out, "%s: ok\n", path)
	}

	return nil
}

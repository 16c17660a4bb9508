package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogEntry represents a parsed log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Category  string                 `json:"category"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogReader provides functionality to read and stream log files
type LogReader struct {
	logsDir string
}

// NewLogReader creates a new log reader
func NewLogReader(logsDir string) *LogReader {
	return &LogReader{
		logsDir: logsDir,
	}
}

// GetLogPath returns the path to a category log file for a specific date
func (lr *LogReader) GetLogPath(category LogCategory, date time.Time) string {
	dateStr := date.Format("20060102")
	filename := fmt.Sprintf("%s-%s.log", category, dateStr)
	return filepath.Join(lr.logsDir, filename)
}

// GetTodayLogPath returns the path to today's log file for a category
func (lr *LogReader) GetTodayLogPath(category LogCategory) string {
	return lr.GetLogPath(category, time.Now())
}

// ReadLogs reads the last limit entries from a category log file
func (lr *LogReader) ReadLogs(category LogCategory, date time.Time, limit int) ([]LogEntry, error) {
	file, err := os.Open(lr.GetLogPath(category, date))
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	entries := make([]LogEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, parseLine(line, category))
	}
	return entries, nil
}

// ReadTodayLogs reads today's log entries for a category
func (lr *LogReader) ReadTodayLogs(category LogCategory, limit int) ([]LogEntry, error) {
	return lr.ReadLogs(category, time.Now(), limit)
}

// SearchLogs returns entries whose message, level or field values contain query
func (lr *LogReader) SearchLogs(category LogCategory, date time.Time, query string, limit int) ([]LogEntry, error) {
	entries, err := lr.ReadLogs(category, date, 0)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	filtered := []LogEntry{}
	for _, entry := range entries {
		if entry.matches(query) {
			filtered = append(filtered, entry)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}

// TailLogs sends entries appended to today's file until stopChan is closed
func (lr *LogReader) TailLogs(category LogCategory, entryChan chan<- LogEntry, stopChan <-chan struct{}) error {
	logPath := lr.GetTodayLogPath(category)

	var file *os.File
	for file == nil {
		f, err := os.Open(logPath)
		if err == nil {
			file = f
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		// Wait for the file to be created
		select {
		case <-stopChan:
			return nil
		case <-time.After(time.Second):
		}
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	reader := bufio.NewReader(file)

	var partial string
	for {
		select {
		case <-stopChan:
			return nil
		default:
		}

		chunk, err := reader.ReadString('\n')
		partial += chunk
		if err == io.EOF {
			select {
			case <-stopChan:
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return err
		}

		line := strings.TrimSpace(partial)
		partial = ""
		if line == "" {
			continue
		}

		select {
		case entryChan <- parseLine(line, category):
		case <-stopChan:
			return nil
		}
	}
}

// parseLine decodes a JSON log line; anything else becomes a plain info entry
func parseLine(line string, category LogCategory) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{
			Timestamp: time.Now().Format(time.RFC3339),
			Level:     "info",
			Message:   line,
			Category:  string(category),
		}
	}

	entry := LogEntry{Category: string(category)}
	for key, value := range raw {
		s, isString := value.(string)
		switch {
		case key == "timestamp" && isString:
			entry.Timestamp = s
		case key == "level" && isString:
			entry.Level = s
		case key == "message" && isString:
			entry.Message = s
		case key == "caller" && isString:
			entry.Caller = s
		case key == "category" && isString:
			entry.Category = s
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]interface{})
			}
			entry.Fields[key] = value
		}
	}
	return entry
}

func (e LogEntry) matches(query string) bool {
	if strings.Contains(strings.ToLower(e.Message), query) ||
		strings.Contains(strings.ToLower(e.Level), query) ||
		strings.Contains(strings.ToLower(e.Caller), query) {
		return true
	}
	for _, v := range e.Fields {
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), query) {
			return true
		}
	}
	return false
}

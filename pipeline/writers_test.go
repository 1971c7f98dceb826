package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

func sampleRecord() *models.UserBook {
	rating := 4
	shelves := "read, favorites"
	finished := "Tue, 02 Jan 2024"
	isbn := "0441013597"
	avg := 4.27
	pages := 604
	return &models.UserBook{
		ID:           "ub-1",
		UserID:       "usr-1",
		BookID:       "bk-1",
		Status:       models.StatusRead,
		Rating:       &rating,
		Shelves:      &shelves,
		DateFinished: &finished,
		CreatedAt:    time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC),
		Book: &models.Book{
			ID:            "bk-1",
			GoodreadsID:   "234225",
			Title:         "Dune",
			Author:        "Frank Herbert",
			ISBN:          &isbn,
			AverageRating: &avg,
			Pages:         &pages,
		},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "books.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Validate(); err == nil {
		t.Fatalf("expected validation error before any record")
	}

	if err := writer.Write([]*models.UserBook{sampleRecord()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "goodreads_id" || records[0][1] != "title" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	row := map[string]string{}
	for i, name := range records[0] {
		row[name] = records[1][i]
	}
	want := map[string]string{
		"goodreads_id":   "234225",
		"title":          "Dune",
		"status":         "read",
		"rating":         "4",
		"shelves":        "read, favorites",
		"isbn13":         "",
		"average_rating": "4.27",
		"pages":          "604",
	}
	for k, v := range want {
		if row[k] != v {
			t.Errorf("%s = %q, want %q", k, row[k], v)
		}
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write([]*models.UserBook{sampleRecord(), sampleRecord()}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.UserBook
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.Book == nil || decoded.Book.Title != "Dune" {
			t.Fatalf("book not embedded: %+v", decoded)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 2 {
		t.Fatalf("json lines=%d, want 2", count)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	jsonPath := filepath.Join(dir, "books.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write([]*models.UserBook{sampleRecord()}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

package store

import (
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// ContributionRecord is the Parquet row layout of a contribution.
type ContributionRecord struct {
	DocID     string `parquet:"doc_id"`
	Revision  int64  `parquet:"revision"`
	Author    string `parquet:"author"`
	Concept   string `parquet:"concept"`
	Timestamp int64  `parquet:"timestamp"` // unix milliseconds
	Words     int64  `parquet:"words"`
}

// ExportContributions writes every contribution row to w as a
// zstd-compressed Parquet file and returns the number of rows written.
func (s *Store) ExportContributions(ctx context.Context, w io.Writer) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, revision_id, author, concept, timestamp, words
		FROM contributions ORDER BY doc_id, timestamp, revision_id, concept
	`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var records []ContributionRecord
	for rows.Next() {
		var (
			r      ContributionRecord
			tsNano int64
		)
		if err := rows.Scan(&r.DocID, &r.Revision, &r.Author, &r.Concept, &tsNano, &r.Words); err != nil {
			return 0, err
		}
		r.Timestamp = tsNano / 1e6
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	writer := parquet.NewGenericWriter[ContributionRecord](w, parquet.Compression(&parquet.Zstd))
	n, err := writer.Write(records)
	if err != nil {
		return 0, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	return n, nil
}

// ReadContributionRecords reads a file written by ExportContributions. r
// must expose its size, as *os.File and *bytes.Reader do.
func ReadContributionRecords(r io.ReaderAt) ([]ContributionRecord, error) {
	reader := parquet.NewGenericReader[ContributionRecord](r)
	defer reader.Close()

	records := make([]ContributionRecord, reader.NumRows())
	n, err := reader.Read(records)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	return records[:n], nil
}

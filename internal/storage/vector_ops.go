package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
)

// scoreVectors returns the cosine similarity between query and the stored embedding of each
// listed document. Documents without an embedding are absent from the result.
func scoreVectors(ctx context.Context, q querier, query []float32, documentIDs []string) (map[string]float64, error) {
	if len(query) == 0 || len(documentIDs) == 0 {
		return map[string]float64{}, nil
	}

	// Use the SQL distance function when sqlite-vec is compiled in
	if VectorExtensionAvailable {
		scores, err := scoreVectorsOptimized(ctx, q, query, documentIDs)
		if err == nil {
			return scores, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Extension not loaded on this connection; compute in Go
	}
	return scoreVectorsFallback(ctx, q, query, documentIDs)
}

// scoreVectorsOptimized uses sqlite-vec's vec_distance_cosine (lower is better) and converts
// the distance to a similarity
func scoreVectorsOptimized(ctx context.Context, q querier, query []float32, documentIDs []string) (map[string]float64, error) {
	sqlQuery, args, err := sqlx.In(`
		SELECT document_id, 1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM embeddings
		WHERE document_id IN (?) AND dimension = ?
	`, serializeVector(query), documentIDs, len(query))
	if err != nil {
		return nil, err
	}

	var rows []struct {
		DocumentID string  `db:"document_id"`
		Similarity float64 `db:"similarity"`
	}
	if err := q.SelectContext(ctx, &rows, q.Rebind(sqlQuery), args...); err != nil {
		return nil, fmt.Errorf("failed to execute vector scoring: %w", err)
	}

	scores := make(map[string]float64, len(rows))
	for _, r := range rows {
		scores[r.DocumentID] = r.Similarity
	}
	return scores, nil
}

// scoreVectorsFallback loads the candidate vectors and computes cosine similarity in Go.
// Used when sqlite-vec is not available (purego builds).
func scoreVectorsFallback(ctx context.Context, q querier, query []float32, documentIDs []string) (map[string]float64, error) {
	sqlQuery, args, err := sqlx.In(`
		SELECT document_id, vector
		FROM embeddings
		WHERE document_id IN (?)
	`, documentIDs)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryxContext(ctx, q.Rebind(sqlQuery), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scores := make(map[string]float64)
	for rows.Next() {
		var documentID string
		var blob []byte
		if err := rows.Scan(&documentID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}

		vector := deserializeVector(blob)
		if len(vector) != len(query) {
			continue // Different embedding model
		}
		scores[documentID] = cosineSimilarity(query, vector)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

package memory

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"whisperengine/internal/queryclass"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Qdrant only allows UUIDs and positive integers as point IDs, so we
// generate a deterministic UUID from the record ID and keep the original ID
// in the payload (grounded in databases.qdrantVector.Upsert).
const payloadIDField = "_original_id"
const payloadUserIDField = "user_id"

const (
	vectorContent  = "content"
	vectorEmotion  = "emotion"
	vectorSemantic = "semantic"
)

type qdrantStore struct {
	client    *qdrant.Client
	character string // normalized character name; derives the collection name
	dimension int
	embedder  Embedder
}

// NewQdrantStore opens (creating if absent) the named-vector collection for
// one character. dsn is a URL such as "http://host:6334?api_key=..."; an
// https scheme enables TLS, and a missing port defaults to 6334, where the
// Go client speaks gRPC.
func NewQdrantStore(dsn string, normalizedCharacter string, dimension int, embedder Embedder) (Store, error) {
	if normalizedCharacter == "" {
		return nil, fmt.Errorf("memory: normalized character name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("memory: parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("memory: invalid qdrant port: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("memory: create qdrant client: %w", err)
	}
	qs := &qdrantStore{client: client, character: normalizedCharacter, dimension: dimension, embedder: embedder}
	if err := qs.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("memory: ensure collection: %w", err)
	}
	return qs, nil
}

func (q *qdrantStore) collectionName() string { return CollectionName(q.character) }

func (q *qdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName())
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	if q.dimension <= 0 {
		return fmt.Errorf("qdrant requires dimensions > 0")
	}
	size := uint64(q.dimension)
	params := &qdrant.VectorParams{Size: size, Distance: qdrant.Distance_Cosine}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName(),
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorContent:  params,
			vectorEmotion:  params,
			vectorSemantic: params,
		}),
	})
}

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *qdrantStore) Store(ctx context.Context, record Record) error {
	if q.embedder != nil && record.ContentEmbedding == nil {
		cv, ev, sv, err := q.embedder.Embed(ctx, record.Content)
		if err != nil {
			return fmt.Errorf("memory: embed record: %w", err)
		}
		record.ContentEmbedding, record.EmotionEmbedding, record.SemanticEmbedding = cv, ev, sv
	}
	uuidStr := pointUUID(record.ID)
	metadata := map[string]any{
		payloadUserIDField: record.UserID,
		"role":             string(record.Role),
		"content":          record.Content,
		"emotional_context": record.EmotionalContext,
		"importance":       record.Importance,
		"timestamp":        record.Timestamp.UTC().Format(timestampLayout),
	}
	if len(record.Topics) > 0 {
		metadata["topics"] = strings.Join(record.Topics, ",")
	}
	for k, v := range record.Metadata {
		metadata[k] = v
	}
	if uuidStr != record.ID {
		metadata[payloadIDField] = record.ID
	}

	vectors := map[string][]float32{}
	if len(record.ContentEmbedding) > 0 {
		vectors[vectorContent] = record.ContentEmbedding
	}
	if len(record.EmotionEmbedding) > 0 {
		vectors[vectorEmotion] = record.EmotionEmbedding
	}
	if len(record.SemanticEmbedding) > 0 {
		vectors[vectorSemantic] = record.SemanticEmbedding
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(uuidStr),
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: qdrant.NewValueMap(metadata),
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName(),
		Points:         []*qdrant.PointStruct{point},
	})
	return err
}

func (q *qdrantStore) Search(ctx context.Context, query string, userID string, strategy queryclass.Strategy, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	if len(strategy.VectorNames) == 0 {
		return q.ScrollRecent(ctx, userID, limit)
	}
	var contentVec, emotionVec, semanticVec []float32
	if q.embedder != nil {
		cv, ev, sv, err := q.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("memory: embed query: %w", err)
		}
		contentVec, emotionVec, semanticVec = cv, ev, sv
	}
	byName := map[string][]float32{vectorContent: contentVec, vectorEmotion: emotionVec, vectorSemantic: semanticVec}
	return q.searchByVectors(ctx, byName, userID, strategy, limit)
}

func (q *qdrantStore) searchByVectors(ctx context.Context, byName map[string][]float32, userID string, strategy queryclass.Strategy, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	filter := &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(payloadUserIDField, userID)}}
	lim := uint64(limit)

	type namedHits struct {
		name string
		hits []rankedHit
	}
	recordsByID := map[string]Record{}
	var collected []namedHits

	for _, name := range strategy.VectorNames {
		vec := byName[name]
		if len(vec) == 0 {
			continue
		}
		usingName := name
		results, err := q.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: q.collectionName(),
			Query:          qdrant.NewQueryDense(vec),
			Using:          &usingName,
			Limit:          &lim,
			Filter:         filter,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("memory: qdrant query %s: %w", name, err)
		}
		hits := make([]rankedHit, 0, len(results))
		for rank, hit := range results {
			rec := recordFromPoint(hit.Id, hit.Payload, float64(hit.Score))
			recordsByID[rec.ID] = rec
			hits = append(hits, rankedHit{id: rec.ID, rank: rank, score: float64(hit.Score)})
		}
		collected = append(collected, namedHits{name: name, hits: hits})
	}

	if len(collected) == 0 {
		return nil, nil
	}
	if !strategy.Fuse || len(collected) == 1 {
		first := collected[0].hits
		out := make([]Record, 0, len(first))
		for _, h := range first {
			out = append(out, recordsByID[h.id])
		}
		return take(out, limit), nil
	}

	perVector := make([][]rankedHit, len(collected))
	for i, c := range collected {
		perVector[i] = c.hits
	}
	fusedIDs := reciprocalRankFuse(perVector, strategy.Weights, limit)
	out := make([]Record, 0, len(fusedIDs))
	for _, id := range fusedIDs {
		out = append(out, recordsByID[id])
	}
	return out, nil
}

func (q *qdrantStore) ScrollRecent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	lim := uint32(limit)
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collectionName(),
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(payloadUserIDField, userID)}},
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("memory: qdrant scroll: %w", err)
	}
	out := make([]Record, 0, len(points))
	for _, p := range points {
		out = append(out, recordFromPoint(p.Id, p.Payload, 0))
	}
	sortRecordsByTimestampDesc(out)
	return take(out, limit), nil
}

func (q *qdrantStore) History(ctx context.Context, userID string, limit int) ([]Record, error) {
	return q.ScrollRecent(ctx, userID, limit)
}

func (q *qdrantStore) Close() error {
	return q.client.Close()
}

func recordFromPoint(id *qdrant.PointId, payload map[string]*qdrant.Value, score float64) Record {
	rec := Record{ID: id.GetUuid(), Metadata: map[string]string{}}
	if rec.ID == "" {
		rec.ID = id.String()
	}
	for k, v := range payload {
		switch k {
		case payloadIDField:
			rec.ID = v.GetStringValue()
		case payloadUserIDField:
			rec.UserID = v.GetStringValue()
		case "role":
			rec.Role = Role(v.GetStringValue())
		case "content":
			rec.Content = v.GetStringValue()
		case "emotional_context":
			rec.EmotionalContext = v.GetStringValue()
		case "importance":
			rec.Importance = v.GetDoubleValue()
		case "topics":
			if s := v.GetStringValue(); s != "" {
				rec.Topics = strings.Split(s, ",")
			}
		case "timestamp":
			if ts, err := time.Parse(timestampLayout, v.GetStringValue()); err == nil {
				rec.Timestamp = ts
			}
		default:
			rec.Metadata[k] = v.GetStringValue()
		}
	}
	return rec
}

func sortRecordsByTimestampDesc(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

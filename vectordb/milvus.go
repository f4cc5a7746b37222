package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/ragstack/ragchat/config"
	"github.com/ragstack/ragchat/schema"
)

const (
	milvusFieldID       = "id"
	milvusFieldContent  = "content"
	milvusFieldMetadata = "metadata"
	milvusFieldVector   = "vector"

	milvusMaxIDLen      = 64
	milvusMaxContentLen = 65535
)

// milvusProvider stores documents in a Milvus collection with a COSINE
// HNSW index. Metadata travels as a JSON-encoded varchar field.
type milvusProvider struct {
	cli        client.Client
	collection string
	dim        int
}

func newMilvusProvider(ctx context.Context, cfg config.VectorDBConfig, dim int) (*milvusProvider, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 19530
	}
	cli, err := client.NewClient(ctx, client.Config{
		Address:  fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus failed, err: %w", err)
	}
	p := &milvusProvider{cli: cli, collection: cfg.Collection, dim: dim}
	if p.collection == "" {
		p.collection = "documents"
	}
	if err := p.ensureCollection(ctx); err != nil {
		cli.Close()
		return nil, err
	}
	return p, nil
}

func (p *milvusProvider) ensureCollection(ctx context.Context) error {
	has, err := p.cli.HasCollection(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("check collection failed, err: %w", err)
	}
	if !has {
		sch := &entity.Schema{
			CollectionName: p.collection,
			AutoID:         false,
			Fields: []*entity.Field{
				entity.NewField().WithName(milvusFieldID).
					WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusMaxIDLen).WithIsPrimaryKey(true),
				entity.NewField().WithName(milvusFieldContent).
					WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusMaxContentLen),
				entity.NewField().WithName(milvusFieldMetadata).
					WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusMaxContentLen),
				entity.NewField().WithName(milvusFieldVector).
					WithDataType(entity.FieldTypeFloatVector).WithDim(int64(p.dim)),
			},
		}
		if err := p.cli.CreateCollection(ctx, sch, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create collection failed, err: %w", err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
		if err != nil {
			return fmt.Errorf("build index failed, err: %w", err)
		}
		if err := p.cli.CreateIndex(ctx, p.collection, milvusFieldVector, idx, false); err != nil {
			return fmt.Errorf("create index failed, err: %w", err)
		}
	}
	if err := p.cli.LoadCollection(ctx, p.collection, false); err != nil {
		return fmt.Errorf("load collection failed, err: %w", err)
	}
	return nil
}

func (p *milvusProvider) GetProviderType() string { return "milvus" }

func (p *milvusProvider) AddDocs(ctx context.Context, docs []schema.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("no documents to add")
	}
	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	metas := make([]string, len(docs))
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		if len(d.Vector) != p.dim {
			return fmt.Errorf("document %s has vector dim %d, collection expects %d", d.ID, len(d.Vector), p.dim)
		}
		ids[i] = d.ID
		contents[i] = d.Content
		encoded, err := encodeMetadata(d)
		if err != nil {
			return fmt.Errorf("encode metadata failed, err: %w", err)
		}
		metas[i] = encoded
		vectors[i] = d.Vector
	}
	_, err := p.cli.Insert(ctx, p.collection, "",
		entity.NewColumnVarChar(milvusFieldID, ids),
		entity.NewColumnVarChar(milvusFieldContent, contents),
		entity.NewColumnVarChar(milvusFieldMetadata, metas),
		entity.NewColumnFloatVector(milvusFieldVector, p.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert documents failed, err: %w", err)
	}
	if err := p.cli.Flush(ctx, p.collection, false); err != nil {
		return fmt.Errorf("flush collection failed, err: %w", err)
	}
	return nil
}

func (p *milvusProvider) SearchDocs(ctx context.Context, vector []float32, opts schema.SearchOptions) ([]schema.SearchResult, error) {
	if len(vector) != p.dim {
		return nil, fmt.Errorf("query vector dim %d, collection expects %d", len(vector), p.dim)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search param failed, err: %w", err)
	}
	raw, err := p.cli.Search(ctx, p.collection, nil, "",
		[]string{milvusFieldID, milvusFieldContent, milvusFieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		milvusFieldVector, entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("search failed, err: %w", err)
	}
	var results []schema.SearchResult
	for _, rs := range raw {
		ids := varcharData(rs.Fields.GetColumn(milvusFieldID))
		contents := varcharData(rs.Fields.GetColumn(milvusFieldContent))
		metas := varcharData(rs.Fields.GetColumn(milvusFieldMetadata))
		for i := 0; i < rs.ResultCount; i++ {
			doc := schema.Document{}
			if i < len(ids) {
				doc.ID = ids[i]
			}
			if i < len(contents) {
				doc.Content = contents[i]
			}
			if i < len(metas) {
				doc.Metadata = decodeMetadata(metas[i], &doc.CreatedAt)
			}
			// milvus cosine scores live in [-1, 1]; remap to [0, 1]
			score := (float64(rs.Scores[i]) + 1) / 2
			results = append(results, schema.SearchResult{Document: doc, Score: score})
		}
	}
	return results, nil
}

func (p *milvusProvider) ListDocs(ctx context.Context, limit int) ([]schema.Document, error) {
	rs, err := p.cli.Query(ctx, p.collection, nil, fmt.Sprintf(`%s != ""`, milvusFieldID),
		[]string{milvusFieldID, milvusFieldContent, milvusFieldMetadata})
	if err != nil {
		return nil, fmt.Errorf("query documents failed, err: %w", err)
	}
	ids := varcharData(rs.GetColumn(milvusFieldID))
	contents := varcharData(rs.GetColumn(milvusFieldContent))
	metas := varcharData(rs.GetColumn(milvusFieldMetadata))
	docs := make([]schema.Document, 0, len(ids))
	for i := range ids {
		doc := schema.Document{ID: ids[i]}
		if i < len(contents) {
			doc.Content = contents[i]
		}
		if i < len(metas) {
			doc.Metadata = decodeMetadata(metas[i], &doc.CreatedAt)
		}
		docs = append(docs, doc)
		if limit > 0 && len(docs) >= limit {
			break
		}
	}
	return docs, nil
}

func (p *milvusProvider) DeleteDocs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := p.cli.DeleteByPks(ctx, p.collection, "", entity.NewColumnVarChar(milvusFieldID, ids)); err != nil {
		return fmt.Errorf("delete documents failed, err: %w", err)
	}
	return nil
}

func (p *milvusProvider) Count(ctx context.Context) (int, error) {
	stats, err := p.cli.GetCollectionStatistics(ctx, p.collection)
	if err != nil {
		return 0, fmt.Errorf("collection statistics failed, err: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("parse row count failed, err: %w", err)
	}
	return n, nil
}

func (p *milvusProvider) Reset(ctx context.Context) error {
	if err := p.cli.DropCollection(ctx, p.collection); err != nil {
		return fmt.Errorf("drop collection failed, err: %w", err)
	}
	return p.ensureCollection(ctx)
}

func (p *milvusProvider) Close() error {
	return p.cli.Close()
}

func varcharData(col entity.Column) []string {
	vc, ok := col.(*entity.ColumnVarChar)
	if !ok || vc == nil {
		return nil
	}
	return vc.Data()
}

// encodeMetadata embeds the creation time into a copy of the document
// metadata; the caller's map is left untouched.
func encodeMetadata(d schema.Document) (string, error) {
	meta := make(map[string]interface{}, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		meta[k] = v
	}
	meta["created_at"] = d.CreatedAt.Format(time.RFC3339)
	encoded, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeMetadata(encoded string, createdAt *time.Time) map[string]interface{} {
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(encoded), &meta); err != nil {
		return nil
	}
	if s, ok := meta["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			*createdAt = t
		}
		delete(meta, "created_at")
	}
	return meta
}

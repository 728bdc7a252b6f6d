// Package embedder turns fragment text and queries into unit-length vectors.
//
// Three providers implement the Embedder interface:
//
//   - local: offline feature hashing of identifiers (default, 384 dims).
//     Deterministic, so indexes built without network access are reproducible.
//   - openai: the OpenAI embeddings API through go-openai. With BaseURL set it
//     talks to any OpenAI-compatible server (Ollama, LM Studio, vLLM).
//   - jina: the Jina AI embeddings API over HTTP.
//
// Remote calls are retried with exponential backoff; client errors such as a
// rejected key fail immediately. An optional LRU cache keyed by provider,
// model and text hash avoids re-embedding unchanged fragments.
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 10000})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
package embedder

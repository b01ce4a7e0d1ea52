// Package llm is the single abstraction point for text completion.
//
// Every AI-driven step of search (intent analysis and semantic scoring)
// talks to a Provider. Callers must tolerate Complete failing, timing out
// or returning output that does not parse; ParseOrDefault centralises the
// parse-or-fall-back contract for structured responses.
//
// # Providers
//
//   - "openai": any OpenAI-compatible chat endpoint via langchaingo
//     (OpenAI, Ollama, LM Studio, vLLM)
//   - "none": a Disabled provider whose calls always fail, so every
//     consumer takes its deterministic fallback path
//
// # Rate limiting
//
// RateLimited wraps a Provider with a token bucket so that concurrent batch
// searches cannot flood the upstream API.
package llm

// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document and chunk persistence
//   - ConversationStore: Conversation history persistence
//   - EmbeddingStore: Persisted chunk embeddings (index reload at start)
//   - VectorIndex: In-process similarity search over chunk embeddings
//   - EmbeddingService: Generates vector embeddings (remote provider)
//   - LLMService: Generates grounded answers (remote provider)
//
// # Optional Interfaces
//
//   - ConfigStore: Application configuration (defaults apply without it)
//   - PromptStore: User-editable prompt templates (embedded defaults apply)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven

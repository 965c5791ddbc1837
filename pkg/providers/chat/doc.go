// Package chat implements the adapter for OpenAI-style chat-completion
// backends.
//
// An invocation sends
//
//	POST {base}/chat/completions
//	Authorization: Bearer <api_key>
//	{"model": ..., "messages": [system, user], "temperature": ..., "max_tokens": ...}
//
// and returns choices[0].message.content. Liveness is GET {base}/models.
//
// # Basic Usage
//
//	provider, err := chat.NewProvider(providers.ProviderConfig{
//	    Name:     "openai",
//	    Protocol: providers.ProtocolChat,
//	    BaseURL:  "https://api.openai.com/v1",
//	    Model:    "gpt-4o-mini",
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	text, err := provider.Invoke(ctx, prompt.Build(query, schema))
package chat

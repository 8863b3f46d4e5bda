package markov

// Version is overridden at build time with -ldflags "-X github.com/viant/markov.Version=...".
var Version = "dev"

package config

// DefaultHost is the default listen interface for the WebSocket server.
const DefaultHost = "localhost"

// DefaultPort is the default listen port for the WebSocket server.
const DefaultPort = 8000

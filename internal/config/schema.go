package config

var configSchema = `
{
  "type": "object",
  "properties": {
    "groupId": {
      "description": "Sparkplug-B group this node belongs to.",
      "type": "string"
    },
    "edgeNodeId": {
      "description": "This node's edge node id, unique within its group.",
      "type": "string"
    },
    "namespace": {
      "description": "Sparkplug-B topic namespace, e.g. 'spBv1.0'.",
      "type": "string"
    },
    "transport": {
      "description": "Connection parameters for the pub/sub transport backing this node.",
      "type": "object",
      "properties": {
        "host": {
          "type": "string"
        },
        "port": {
          "type": "integer"
        },
        "username": {
          "type": "string"
        },
        "password": {
          "type": "string"
        },
        "credsFilePath": {
          "description": "Path to a NATS credentials file, used instead of username/password.",
          "type": "string"
        }
      },
      "required": ["host", "port"]
    },
    "logLevel": {
      "description": "Minimum log level to emit (e.g. 'debug', 'info', 'warn', 'error').",
      "type": "string"
    },
    "metricsAddr": {
      "description": "Address the Prometheus metrics endpoint listens on (for example: ':9090').",
      "type": "string"
    },
    "adminAddr": {
      "description": "Address the admin HTTP surface listens on (for example: ':8081').",
      "type": "string"
    },
    "rebirthInterval": {
      "description": "How often to trigger a full maintenance rebirth (time.ParseDuration string, e.g. '30m'). Omit to disable.",
      "type": "string"
    }
  },
  "required": ["groupId", "edgeNodeId", "transport"]
}`

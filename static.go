package main

import _ "embed"

// indexHTML is the embedded meter page HTML template.
//go:embed web/index.html
var indexHTML string

// styleCSS is the embedded CSS stylesheet.
//go:embed web/style.css
var styleCSS string

// appJS is the embedded JavaScript that mirrors page state over the WebSocket.
//go:embed web/app.js
var appJS string

package monitor

import (
	"crypto/subtle"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// maxLogTail bounds how much of the log file /logs returns.
const maxLogTail = 256 * 1024

// RegisterMonitorPage serves a small status page that polls /api/v1/health,
// /metrics and /logs. The log token is typed in by the operator and never embedded.
func RegisterMonitorPage(router *gin.Engine) {
	router.GET("/monitor", func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(monitorPage))
	})
}

// RegisterLogsRoute exposes the tail of logPath at /logs?token=. The route is
// disabled when token is empty.
func RegisterLogsRoute(router *gin.Engine, logPath, token string) {
	router.GET("/logs", func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log access is disabled"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		logData, err := readTail(logPath, maxLogTail)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", logData)
	})
}

func readTail(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if offset := info.Size() - limit; offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
	}
	return io.ReadAll(f)
}

const monitorPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>Book Submission Monitor</title>
  <style>
    body { background: #111; color: #ddd; font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; padding: 20px; }
    .card { background: #1c1c24; border: 1px solid #333; border-radius: 10px; padding: 1rem; margin-bottom: 1rem; }
    pre { max-height: 480px; overflow: auto; font-size: 0.8rem; white-space: pre-wrap; }
    input, button { background: #222; color: #ddd; border: 1px solid #444; border-radius: 6px; padding: 0.3rem 0.6rem; }
  </style>
</head>
<body>
  <h1>Book Submission API</h1>
  <div class="card" id="status">Status: checking...</div>
  <div class="card"><pre id="metrics">Loading metrics...</pre></div>
  <div class="card">
    <input type="password" id="token" placeholder="Log access token" />
    <button onclick="fetchLogs()">Load logs</button>
    <pre id="logs"></pre>
  </div>
  <script>
    function fetchStatus() {
      fetch('/api/v1/health')
        .then(res => res.json())
        .then(data => { document.getElementById('status').textContent = 'Status: ' + (data.status === 'ok' ? 'online' : 'degraded'); })
        .catch(() => { document.getElementById('status').textContent = 'Status: offline'; });
    }
    function fetchMetrics() {
      fetch('/metrics')
        .then(res => res.text())
        .then(text => {
          document.getElementById('metrics').textContent = text.split('\n')
            .filter(line => line.startsWith('book_submission_'))
            .join('\n');
        });
    }
    function fetchLogs() {
      const token = encodeURIComponent(document.getElementById('token').value);
      fetch('/logs?token=' + token)
        .then(res => res.text())
        .then(text => {
          const el = document.getElementById('logs');
          el.textContent = text;
          el.scrollTop = el.scrollHeight;
        });
    }
    fetchStatus();
    fetchMetrics();
    setInterval(fetchStatus, 5000);
    setInterval(fetchMetrics, 5000);
  </script>
</body>
</html>`

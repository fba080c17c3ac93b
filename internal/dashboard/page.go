package dashboard

// indexPage 是内置的单页面板 通过 WebSocket 实时刷新
const indexPage = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>Network Monitoring Dashboard</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 24px; background: #f5f6f8; color: #24292f; }
h1 { font-size: 20px; }
h2 { font-size: 15px; margin-bottom: 8px; }
.card { background: #fff; border: 1px solid #d8dde3; border-radius: 6px; padding: 16px; margin-bottom: 16px; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #eceff2; font-size: 13px; }
.status-operational { color: #1a7f37; }
.status-degraded { color: #bf8700; }
.status-down { color: #cf222e; }
.sev-HIGH, .sev-CRITICAL { color: #cf222e; font-weight: 600; }
.sev-MEDIUM { color: #bf8700; }
.sev-LOW { color: #1a7f37; }
#meta { color: #6e7781; font-size: 12px; }
</style>
</head>
<body>
<h1>Network Monitoring Dashboard</h1>
<p id="meta">connecting...</p>
<div class="card"><h2>Status Summary (24h)</h2><table id="summary"></table></div>
<div class="card"><h2>Active Alerts (24h)</h2><table id="alerts"></table></div>
<div class="card"><h2>Host</h2><table id="sysinfo"></table></div>
<script>
function render(data) {
  document.getElementById('meta').textContent = 'updated at ' + data.at;
  var summary = document.getElementById('summary');
  summary.innerHTML = '<tr><th>type</th><th>operational</th><th>degraded</th><th>down</th></tr>';
  for (var type in (data.summary || {})) {
    var row = data.summary[type];
    summary.innerHTML += '<tr><td>' + type + '</td>' +
      '<td class="status-operational">' + (row.operational || 0) + '</td>' +
      '<td class="status-degraded">' + (row.degraded || 0) + '</td>' +
      '<td class="status-down">' + (row.down || 0) + '</td></tr>';
  }
  var alerts = document.getElementById('alerts');
  alerts.innerHTML = '<tr><th>time</th><th>severity</th><th>rule</th><th>target</th><th>message</th></tr>';
  (data.alerts || []).forEach(function(item) {
    alerts.innerHTML += '<tr><td>' + item.timestamp + '</td>' +
      '<td class="sev-' + item.severity + '">' + item.severity + '</td>' +
      '<td>' + item.rule_name + '</td><td>' + item.target + '</td><td>' + item.message + '</td></tr>';
  });
  var sys = data.sysinfo || {};
  document.getElementById('sysinfo').innerHTML =
    '<tr><td>hostname</td><td>' + (sys.hostname || '-') + '</td></tr>' +
    '<tr><td>cpu</td><td>' + (sys.cpu_percent || 0).toFixed(1) + '%</td></tr>' +
    '<tr><td>memory</td><td>' + (sys.memory_used_mb || 0) + ' / ' + (sys.memory_total_mb || 0) + ' MB</td></tr>' +
    '<tr><td>load</td><td>' + (sys.load1 || 0) + ' ' + (sys.load5 || 0) + ' ' + (sys.load15 || 0) + '</td></tr>';
}
function connect() {
  var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var ws = new WebSocket(proto + location.host + '/ws');
  ws.onmessage = function(event) { render(JSON.parse(event.data)); };
  ws.onclose = function() {
    document.getElementById('meta').textContent = 'disconnected, retrying...';
    setTimeout(connect, 3000);
  };
}
connect();
</script>
</body>
</html>
`

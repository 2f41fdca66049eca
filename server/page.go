package server

// indexHTML is the viewer page.  Dragging the stream orbits the camera, the
// wheel zooms and a double click resets the view.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; background: #111; color: #eee; font-family: sans-serif; }
header { padding: 12px 20px; }
h1 { margin: 0; font-size: 28px; }
p { margin: 4px 0 0; color: #bbb; }
#view { display: block; margin: 0 auto; max-width: 100%; cursor: grab; user-select: none; }
#position { text-align: center; font-family: monospace; color: #888; padding: 8px; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p>{{.Tagline}}</p>
</header>
<img id="view" src="/stream" alt="{{.Title}}" draggable="false">
<div id="position">waiting for face</div>
<script>
const view = document.getElementById("view");
const readout = document.getElementById("position");
let drag = null;

function orbit(body) {
  fetch("/api/orbit", {method: "POST", headers: {"Content-Type": "application/json"},
    body: JSON.stringify(body)});
}

view.addEventListener("mousedown", e => { drag = {x: e.clientX, y: e.clientY}; });
window.addEventListener("mouseup", () => { drag = null; });
window.addEventListener("mousemove", e => {
  if (!drag) return;
  const dx = e.clientX - drag.x, dy = e.clientY - drag.y;
  drag = {x: e.clientX, y: e.clientY};
  orbit({azimuth: -dx * 0.01, polar: -dy * 0.01});
});
view.addEventListener("wheel", e => {
  e.preventDefault();
  orbit({dolly: e.deltaY > 0 ? 1.1 : 0.9});
});
view.addEventListener("dblclick", () => { fetch("/api/orbit/reset", {method: "POST"}); });

setInterval(() => {
  fetch("/api/position").then(r => r.json()).then(p => {
    readout.textContent = p.present ?
      "x " + p.x.toFixed(3) + "  y " + p.y.toFixed(3) + "  z " + p.z.toFixed(3) :
      "waiting for face";
  });
}, 250);
</script>
</body>
</html>
`

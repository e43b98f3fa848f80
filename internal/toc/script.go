package toc

import "fmt"

// ClientScript is the in-page counterpart of Spy and Observer: same band,
// last intersecting heading wins, clicks scroll smoothly and mark themselves
// active straight away.
func ClientScript(rootMargin string) string {
	return fmt.Sprintf(`(function () {
  var links = document.querySelectorAll('.toc a[data-target]');
  if (!links.length || !('IntersectionObserver' in window)) { return; }
  function activate(id) {
    links.forEach(function (a) { a.classList.toggle('active', a.dataset.target === id); });
  }
  var observer = new IntersectionObserver(function (entries) {
    var id = null;
    entries.forEach(function (e) { if (e.isIntersecting) { id = e.target.id; } });
    if (id) { activate(id); }
  }, { rootMargin: %q });
  links.forEach(function (a) {
    var target = document.getElementById(a.dataset.target);
    if (target) { observer.observe(target); }
    a.addEventListener('click', function (ev) {
      ev.preventDefault();
      if (target) { target.scrollIntoView({ behavior: 'smooth' }); }
      activate(a.dataset.target);
    });
  });
  window.addEventListener('pagehide', function () { observer.disconnect(); });
})();`, rootMargin)
}

// ScrollScript performs a ScrollRequest when the page loads.
func ScrollScript(req ScrollRequest) string {
	return fmt.Sprintf(`document.addEventListener('DOMContentLoaded', function () {
  var el = document.getElementById(%q);
  if (el) { el.scrollIntoView({ behavior: %q }); }
});`, req.ID, req.Behavior)
}

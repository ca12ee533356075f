package main

import (
	"net/http"
	"time"
)

const timeoutBody = `<!DOCTYPE html>
<html lang="ko">
<head><meta charset="utf-8"><title>시간 초과</title></head>
<body>
<h1>시간 초과</h1>
<p>보고서를 만드는 데 시간이 너무 오래 걸렸습니다. <a href="/">처음으로 돌아가기</a></p>
</body>
</html>
`

// timeoutHandler responds with a 503 Service Unavailable error when the handler does not meet the deadline.
func timeoutHandler(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, timeoutBody)
}

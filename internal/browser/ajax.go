package browser

import (
	"github.com/playwright-community/playwright-go"
)

// OnResponse подписывает handler на все сетевые ответы страницы.
// Возвращает функцию отписки, вызывать её можно несколько раз.
// handler вызывается в цикле событий playwright и не должен блокироваться.
func (b *PlaywrightBrowser) OnResponse(handler func(Response)) (unsubscribe func()) {
	page := b.getPage()
	if page == nil {
		return func() {}
	}

	listener := func(response playwright.Response) {
		handler(response)
	}
	page.OnResponse(listener)

	return func() {
		page.RemoveListener("response", listener)
	}
}

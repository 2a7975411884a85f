package commands

import (
	"context"
	"fmt"
	"io"

	"uniTrack/internal/cli/ui"
	"uniTrack/internal/portal"
	"uniTrack/internal/tracker"
)

type Refresher interface {
	Refresh(ctx context.Context, creds portal.Credentials, autoDiscover bool) (tracker.Report, error)
}

// FetchHandler выгружает свежие данные с портала
type FetchHandler struct {
	svc     Refresher
	out     io.Writer
	colored bool
}

func NewFetchHandler(svc Refresher, out io.Writer, colored bool) *FetchHandler {
	return &FetchHandler{
		svc:     svc,
		out:     out,
		colored: colored,
	}
}

func (h *FetchHandler) Fetch(ctx context.Context, creds portal.Credentials, autoDiscover bool, student string) error {
	fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorCyan, ui.IconGlobe+" Вход на портал..."))

	report, err := h.svc.Refresh(ctx, creds, autoDiscover)
	if err != nil {
		fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorRed, ui.IconCross+" "+describeError(err)))
		return err
	}

	printReport(h.out, report, student, h.colored)
	return nil
}

// describeError - понятное пользователю описание ошибки выгрузки.
func describeError(err error) string {
	switch portal.KindOf(err) {
	case portal.KindConfigurationIncomplete:
		return "Портал не настроен: " + err.Error() + ". Запустите `unitrack discover` или `unitrack fetch --discover`."
	case portal.KindAuthenticationFailed:
		return "Не удалось войти: проверьте логин и пароль"
	case portal.KindNoDataFound:
		return "Данные о посещаемости не найдены"
	default:
		return "Ошибка выгрузки: " + err.Error()
	}
}

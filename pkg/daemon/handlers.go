package daemon

import (
	"fmt"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/indicator"
	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
	"github.com/charlie0129/battime/pkg/version"
)

// maxSeparatorRunes keeps the percent separator a separator.
const maxSeparatorRunes = 3

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Source           string                     `json:"source"`
	Locale           string                     `json:"locale"`
	PercentSeparator string                     `json:"percentSeparator"`
	Display          *presentation.DisplayState `json:"display,omitempty"`
	Snapshot         *power.Snapshot            `json:"snapshot,omitempty"`
	Stats            indicator.Stats            `json:"stats"`
	Subscribers      int                        `json:"subscribers"`
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getDisplay(c *gin.Context) {
	d, ok := ind.LastDisplay()
	if !ok {
		c.IndentedJSON(http.StatusServiceUnavailable, "no power snapshot has been read yet")
		return
	}
	c.IndentedJSON(http.StatusOK, d)
}

func getSnapshot(c *gin.Context) {
	s, ok := ind.LastSnapshot()
	if !ok {
		c.IndentedJSON(http.StatusServiceUnavailable, "no power snapshot has been read yet")
		return
	}
	c.IndentedJSON(http.StatusOK, s)
}

func getStatus(c *gin.Context) {
	resp := StatusResponse{
		Source:           ind.SourceName(),
		Locale:           conf.Locale(),
		PercentSeparator: conf.PercentSeparator(),
		Stats:            ind.Stats(),
		Subscribers:      sseHub.Subscribers(),
	}
	if d, ok := ind.LastDisplay(); ok {
		resp.Display = &d
	}
	if s, ok := ind.LastSnapshot(); ok {
		resp.Snapshot = &s
	}
	c.IndentedJSON(http.StatusOK, resp)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func setLocale(c *gin.Context) {
	var locale string
	if err := c.BindJSON(&locale); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	f, err := presentation.NewFormatter(locale, conf.PercentSeparator())
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetLocale(f.Locale())
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	ind.SetDeriver(presentation.NewDeriver(f))
	logrus.Infof("set locale to %s", f.Locale())

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("labels are now formatted for %s", f.Locale()))
}

func setPercentSeparator(c *gin.Context) {
	var sep string
	if err := c.BindJSON(&sep); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := validateSeparator(sep); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	f, err := presentation.NewFormatter(conf.Locale(), sep)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	conf.SetPercentSeparator(sep)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	ind.SetDeriver(presentation.NewDeriver(f))
	logrus.Infof("set percent separator to %q", sep)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("percentages now look like %s", f.Percent(42)))
}

func validateSeparator(sep string) error {
	if !utf8.ValidString(sep) {
		return fmt.Errorf("separator is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(sep); n > maxSeparatorRunes {
		return fmt.Errorf("separator must be at most %d characters, got %d", maxSeparatorRunes, n)
	}
	for _, r := range sep {
		if unicode.IsControl(r) {
			return fmt.Errorf("separator must not contain control characters")
		}
	}
	return nil
}

func refresh(c *gin.Context) {
	d, err := ind.Sync(c.Request.Context())
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, err.Error())
		_ = c.AbortWithError(http.StatusBadGateway, err)
		return
	}
	c.IndentedJSON(http.StatusOK, d)
}

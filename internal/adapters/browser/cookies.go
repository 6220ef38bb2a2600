package browser

import (
    "context"
    "encoding/json"
    "fmt"
    "os"

    "github.com/chromedp/cdproto/network"
    "github.com/chromedp/chromedp"
)

// Cookie is one entry of an exported session cookie jar.
type Cookie struct {
    Name     string `json:"name"`
    Value    string `json:"value"`
    Domain   string `json:"domain"`
    Path     string `json:"path"`
    Secure   bool   `json:"secure"`
    HTTPOnly bool   `json:"httpOnly"`
}

// LoadCookies reads a JSON array of cookies. A missing path yields no cookies.
func LoadCookies(path string) ([]Cookie, error) {
    if path == "" {
        return nil, nil
    }
    raw, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read cookie file: %w", err)
    }
    var cookies []Cookie
    if err := json.Unmarshal(raw, &cookies); err != nil {
        return nil, fmt.Errorf("parse cookie file: %w", err)
    }
    out := cookies[:0]
    for _, c := range cookies {
        if c.Name == "" || c.Domain == "" {
            continue
        }
        if c.Path == "" {
            c.Path = "/"
        }
        out = append(out, c)
    }
    return out, nil
}

func cookieParams(cookies []Cookie) []*network.CookieParam {
    params := make([]*network.CookieParam, 0, len(cookies))
    for _, c := range cookies {
        params = append(params, &network.CookieParam{
            Name:     c.Name,
            Value:    c.Value,
            Domain:   c.Domain,
            Path:     c.Path,
            Secure:   c.Secure,
            HTTPOnly: c.HTTPOnly,
        })
    }
    return params
}

func setCookies(cookies []Cookie) chromedp.Action {
    if len(cookies) == 0 {
        return chromedp.ActionFunc(func(context.Context) error { return nil })
    }
    return network.SetCookies(cookieParams(cookies))
}

package registo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "embed"
)

//go:embed testdata/login.html
var loginHtml string

// wizardServer fakes the booking site: a cookie-bound wizard plus the
// login/appointments surface.
func wizardServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	requireSession := func(w http.ResponseWriter, r *http.Request) bool {
		_, err := r.Cookie("SESSID")
		if err != nil {
			t.Errorf("%s %s reached the server without the session cookie", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
			return false
		}
		return true
	}

	mux.HandleFunc("/client-interface/appointment-subscription", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "SESSID", Value: "test-session"})
			w.Write([]byte("<html><body><form><input name=\"clientInput\"></form></body></html>"))
			return
		}
		if !requireSession(w, r) {
			return
		}
		require.NoError(t, r.ParseForm())

		switch {
		case r.PostForm.Get("clientInput") != "":
			if r.PostForm.Get("clientInput") == "ABC123" {
				w.Write([]byte(step2ValidHtml))
			} else {
				w.Write([]byte(step2InvalidHtml))
			}
		case r.PostForm.Get("resource") != "":
			require.Equal(t, "7", r.PostForm.Get("resource"))
			require.Equal(t, "1023", r.PostForm.Get("subscription"))
			w.Write([]byte(step3ConstraintsHtml))
		case r.PostForm.Get("date") != "":
			if r.PostForm.Get("date") == "2026-09-14" {
				w.Write([]byte(step4SlotsHtml))
			} else {
				w.Write([]byte(step4EmptyHtml))
			}
		case r.PostForm.Get("interval") != "":
			if r.PostForm.Get("interval") == "int-101" {
				w.Write([]byte("<html><body>Programare înregistrată</body></html>"))
			} else {
				w.WriteHeader(http.StatusInternalServerError)
			}
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(loginHtml))
	})
	mux.HandleFunc("/login_check", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "csrf-42", r.PostForm.Get("_csrf_token"))

		if r.PostForm.Get("_password") == "hunter2" {
			http.SetCookie(w, &http.Cookie{Name: "AUTH", Value: "1"})
			http.Redirect(w, r, "/client-interface/appointments", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/client-interface/appointments", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("AUTH"); err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		w.Write([]byte(appointmentsHtml))
	})
	mux.HandleFunc("/client-interface/appointment/delete/", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("AUTH"); err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		w.Write([]byte("<html><body>Anulat</body></html>"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testClient(t *testing.T, server *httptest.Server) *Client {
	client, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return client
}

func TestInitialize(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)
	ctx := context.Background()

	constraints, ok, err := client.Initialize(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[int]bool{0: true, 6: true}, constraints.DisabledWeekdays)
	require.True(t, constraints.BlackoutDates["2026-09-10"])
	require.False(t, constraints.MaxDate.IsZero())
}

func TestInitializeRejectedCode(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)

	_, ok, err := client.Initialize(context.Background(), "EXPIRED")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInitializeNetworkError(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)
	server.Close()

	_, _, err := client.Initialize(context.Background(), "ABC123")
	require.Error(t, err)
}

func TestSlotsForDate(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)
	ctx := context.Background()

	_, ok, err := client.Initialize(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)

	slots, err := client.SlotsForDate(ctx, time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, slots, 3)
	require.Equal(t, "int-101", slots[0].IntervalID)

	// a date with nothing on offer and a rejected date look the same
	slots, err = client.SlotsForDate(ctx, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Empty(t, slots)
}

func TestSlotsForDateBeforeInitialize(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)

	require.Panics(t, func() {
		client.SlotsForDate(context.Background(), time.Now())
	})
}

func TestBook(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)
	ctx := context.Background()

	_, ok, err := client.Initialize(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)

	booked, err := client.Book(ctx, "int-101")
	require.NoError(t, err)
	require.True(t, booked)

	booked, err = client.Book(ctx, "int-unknown")
	require.NoError(t, err)
	require.False(t, booked)
}

func TestLogin(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)
	ctx := context.Background()

	ok, err := client.Login(ctx, "user@example.com", "wrong")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = client.Login(ctx, "user@example.com", "hunter2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAppointments(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)
	ctx := context.Background()

	// unauthenticated sessions bounce back to the login page
	_, ok, err := client.Appointments(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	loggedIn, err := client.Login(ctx, "user@example.com", "hunter2")
	require.NoError(t, err)
	require.True(t, loggedIn)

	rows, ok, err := client.Appointments(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rows, 2)
	require.Equal(t, "tok-9912", rows[0].DeleteID)
}

func TestCancelAppointment(t *testing.T) {
	server := wizardServer(t)
	client := testClient(t, server)
	ctx := context.Background()

	loggedIn, err := client.Login(ctx, "user@example.com", "hunter2")
	require.NoError(t, err)
	require.True(t, loggedIn)

	ok, err := client.CancelAppointment(ctx, "tok-9912")
	require.NoError(t, err)
	require.True(t, ok)

	// cancels address a stable token, retrying is harmless
	ok, err = client.CancelAppointment(ctx, "tok-9912")
	require.NoError(t, err)
	require.True(t, ok)
}

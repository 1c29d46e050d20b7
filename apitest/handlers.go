package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonwraymond/querysync/auth"
)

// SubscriptionTopics are the newsletter topics broken down by analytics.
var SubscriptionTopics = []string{
	"Monthly Newsletter",
	"Weekly Election News Update (The Ballot)",
	"GenZ Blog Series",
	"Research, Reports, Policy Briefs & Knowledge Products",
	"Press Releases, Stories & Democracy Updates",
	"Opportunities: Events Webinars & Open Calls",
}

const dateLayout = "Jan 2, 2006"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeRecord(r *http.Request) (Record, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (b *Backend) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *Backend) listAll(resource string) http.HandlerFunc {
	return b.list(resource, nil)
}

func (b *Backend) list(resource string, match func(*http.Request, Record) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		out := b.coll(resource).filter(func(rec Record) bool {
			return match == nil || match(r, rec)
		})
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	}
}

// categoryMatches treats an empty category and "All" as no filter.
func categoryMatches(r *http.Request, rec Record) bool {
	category := r.URL.Query().Get("category")
	return category == "" || category == "All" || rec.Str("category") == category
}

func (b *Backend) listBlogs(w http.ResponseWriter, r *http.Request) {
	b.list("blogs", func(r *http.Request, rec Record) bool {
		typ := r.URL.Query().Get("type")
		return (typ == "" || rec.Str("type") == typ) && categoryMatches(r, rec)
	})(w, r)
}

func (b *Backend) listResources(w http.ResponseWriter, r *http.Request) {
	b.list("resources", categoryMatches)(w, r)
}

func (b *Backend) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	b.list("announcements", func(_ *http.Request, rec Record) bool {
		return rec.Str("status") == "published"
	})(w, r)
}

func (b *Backend) listJobs(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	b.list("jobs", func(_ *http.Request, rec Record) bool {
		return all || rec.Bool("is_active")
	})(w, r)
}

// listComments serves approved comments for a post publicly; the full
// moderation list needs a token.
func (b *Backend) listComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if postID := q.Get("post_id"); postID != "" {
		b.list("comments", func(_ *http.Request, rec Record) bool {
			return rec.Str("post_id") == postID && rec.Str("status") == "approved"
		})(w, r)
		return
	}

	if id, status, msg := b.identify(r); id == nil {
		writeError(w, status, msg)
		return
	}
	status := q.Get("status")
	b.list("comments", func(_ *http.Request, rec Record) bool {
		return status == "" || rec.Str("status") == status
	})(w, r)
}

func (b *Backend) bySlug(resource, notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		b.mu.Lock()
		rec, ok := b.coll(resource).find(func(rec Record) bool { return rec.Str("slug") == slug })
		b.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, notFound)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// create stores the request body after defaults (which may reject it by
// returning an error) and echoes the stored record.
func (b *Backend) create(resource string, defaults func(Record) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := decodeRecord(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		delete(rec, "id")

		b.mu.Lock()
		defer b.mu.Unlock()
		if defaults != nil {
			if err := defaults(rec); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, b.coll(resource).insert(rec))
	}
}

func (b *Backend) update(resource, notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		fields, err := decodeRecord(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		b.mu.Lock()
		rec, ok := b.coll(resource).update(id, fields)
		b.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, notFound)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (b *Backend) remove(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		b.mu.Lock()
		ok = b.coll(resource).remove(id)
		b.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) blogDefaults(rec Record) error {
	if rec.Str("slug") == "" {
		rec["slug"] = fmt.Sprintf("%s-%d", slugify(rec.Str("title")), b.now().Unix())
	}
	if rec.Str("type") == "" {
		rec["type"] = "blog"
	}
	if rec.Str("date") == "" {
		rec["date"] = b.now().Format(dateLayout)
	}
	return b.publishedNow(rec)
}

func (b *Backend) jobDefaults(rec Record) error {
	rec["posted"] = b.now().Format(dateLayout)
	if _, ok := rec["is_active"]; !ok {
		rec["is_active"] = true
	}
	return nil
}

func initiativeDefaults(rec Record) error {
	if rec.Str("slug") == "" {
		rec["slug"] = slugify(rec.Str("title"))
	}
	return nil
}

func (b *Backend) announcementDefaults(rec Record) error {
	if rec.Str("status") == "" {
		rec["status"] = "published"
	}
	return b.publishedNow(rec)
}

func (b *Backend) publishedNow(rec Record) error {
	rec["published_at"] = b.now().UTC().Format(time.RFC3339)
	return nil
}

func (b *Backend) auditDefaults(rec Record) error {
	if rec.Str("timestamp") == "" {
		rec["timestamp"] = b.now().UTC().Format(time.RFC3339)
	}
	return nil
}

func slugify(title string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
}

func (b *Backend) createComment(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	delete(rec, "id")
	rec["status"] = "pending"
	rec["date"] = b.now().Format(dateLayout)

	b.mu.Lock()
	defer b.mu.Unlock()
	if postID, err := strconv.ParseInt(rec.Str("post_id"), 10, 64); err == nil {
		if post, ok := b.coll("blogs").get(postID); ok {
			rec["post_title"] = post.Str("title")
		}
	}
	writeJSON(w, http.StatusOK, b.coll("comments").insert(rec))
}

func (b *Backend) setCommentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	_, ok = b.coll("comments").update(id, Record{"status": body.Status})
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Comment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
}

func (b *Backend) submitContact(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec["status"] = "new"
	b.mu.Lock()
	b.coll("contact").insert(rec)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contact form submitted successfully"})
}

func (b *Backend) subscribe(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.coll("subscribers")
	email := rec.Str("email")
	if _, dup := subs.find(func(s Record) bool { return s.Str("email") == email }); dup {
		writeError(w, http.StatusConflict, "Email already subscribed")
		return
	}
	rec["is_active"] = true
	rec["subscribed_at"] = b.now().UTC().Format(time.RFC3339)
	subs.insert(rec)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Subscribed successfully"})
}

func (b *Backend) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Error retrieving the file")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error retrieving the file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error saving the file")
		return
	}

	filename := uuid.NewString() + "-" + header.Filename
	b.mu.Lock()
	b.uploads[filename] = data
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"url":      "/uploads/" + filename,
		"filename": filename,
	})
}

func (b *Backend) getHero(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "page")
	b.mu.Lock()
	rec, ok := b.coll("hero").find(func(rec Record) bool { return rec.Str("page") == page })
	b.mu.Unlock()
	if !ok {
		rec = Record{"page": page}
	}
	writeJSON(w, http.StatusOK, rec)
}

// updateHero upserts by page.
func (b *Backend) updateHero(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := rec.Str("page")
	if page == "" {
		writeError(w, http.StatusBadRequest, "page is required")
		return
	}
	rec["updated_by"] = auth.UserIDFromContext(r.Context())

	b.mu.Lock()
	defer b.mu.Unlock()
	hero := b.coll("hero")
	if existing, ok := hero.find(func(h Record) bool { return h.Str("page") == page }); ok {
		updated, _ := hero.update(existing.ID(), rec)
		writeJSON(w, http.StatusOK, updated)
		return
	}
	writeJSON(w, http.StatusOK, hero.insert(rec))
}

func (b *Backend) dashboardStats(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	blogs := b.coll("blogs")
	writeJSON(w, http.StatusOK, map[string]int{
		"users":       b.coll("users").count(nil),
		"blogs":       blogs.count(func(r Record) bool { return r.Str("type") == "blog" }),
		"news":        blogs.count(func(r Record) bool { return r.Str("type") == "news" }),
		"subscribers": b.coll("subscribers").count(func(r Record) bool { return r.Bool("is_active") }),
	})
}

func (b *Backend) subscriberAnalytics(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	weekAgo := b.now().AddDate(0, 0, -7)
	topics := make(map[string]int, len(SubscriptionTopics))
	for _, t := range SubscriptionTopics {
		topics[t] = 0
	}

	var active, inactive, newThisWeek int
	for _, sub := range b.coll("subscribers").sorted(false) {
		if at, err := time.Parse(time.RFC3339, sub.Str("subscribed_at")); err == nil && !at.Before(weekAgo) {
			newThisWeek++
		}
		if !sub.Bool("is_active") {
			inactive++
			continue
		}
		active++
		for _, name := range stringList(sub["subscriptions"]) {
			if _, known := topics[name]; known {
				topics[name]++
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_active":       active,
		"total_unsubscribed": inactive,
		"new_this_week":      newThisWeek,
		"topic_breakdown":    topics,
	})
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func publicUser(rec Record) Record {
	delete(rec, "password")
	return rec
}

func (b *Backend) listUsers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	users := b.coll("users").sorted(false)
	b.mu.Unlock()
	for _, u := range users {
		publicUser(u)
	}
	writeJSON(w, http.StatusOK, users)
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	delete(rec, "id")
	if _, err := auth.ParseRole(rec.Str("role")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	users := b.coll("users")
	email := rec.Str("email")
	if _, dup := users.find(func(u Record) bool { return u.Str("email") == email }); dup {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	writeJSON(w, http.StatusOK, publicUser(users.insert(rec)))
}

// updateUser applies only the non-empty fields of the request.
func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := Record{}
	for _, k := range []string{"username", "email", "role", "password"} {
		if v := rec.Str(k); v != "" {
			fields[k] = v
		}
	}
	if role, ok := fields["role"].(string); ok {
		if _, err := auth.ParseRole(role); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	b.mu.Lock()
	updated, ok := b.coll("users").update(id, fields)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, publicUser(updated))
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user := Record{
		"username": rec.Str("username"),
		"email":    rec.Str("email"),
		"password": rec.Str("password"),
		"role":     string(auth.RoleUser),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	users := b.coll("users")
	if _, dup := users.find(func(u Record) bool { return u.Str("email") == user.Str("email") }); dup {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	writeJSON(w, http.StatusOK, publicUser(users.insert(user)))
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	user, ok := b.coll("users").find(func(u Record) bool {
		return u.Str("email") == creds.Email && u.Str("password") == creds.Password
	})
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := b.issue(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]string{
			"id":    user.Str("id"),
			"email": user.Str("email"),
			"name":  user.Str("username"),
			"role":  user.Str("role"),
		},
	})
}

func (b *Backend) issue(user Record) (string, error) {
	now := b.now()
	claims := auth.Claims{
		UserID:   user.Str("id"),
		Role:     user.Str("role"),
		Username: user.Str("username"),
		Email:    user.Str("email"),
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(24 * time.Hour))
	return auth.NewToken(b.key, claims)
}

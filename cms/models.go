package cms

// BlogPost is a blog article or a news item; Type tells them apart.
type BlogPost struct {
	ID          int64    `json:"id,omitempty"`
	Title       string   `json:"title" validate:"required,max=200"`
	Slug        string   `json:"slug,omitempty" validate:"omitempty,max=200"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Content     string   `json:"content,omitempty"`
	Date        string   `json:"date,omitempty"`
	Image       string   `json:"image,omitempty"`
	Author      string   `json:"author,omitempty"`
	AuthorRole  string   `json:"author_role,omitempty"`
	Category    string   `json:"category,omitempty"`
	Featured    bool     `json:"featured,omitempty"`
	Type        string   `json:"type,omitempty" validate:"omitempty,oneof=blog news"`
	Tags        []string `json:"tags,omitempty"`
	PdfURL      string   `json:"pdf_url,omitempty" validate:"omitempty,uri"`
	PublishedAt string   `json:"published_at,omitempty"`
}

// Post types.
const (
	TypeBlog = "blog"
	TypeNews = "news"
)

// Stat is one headline figure on an initiative page.
type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Initiative is a programme or project.
type Initiative struct {
	ID              int64    `json:"id,omitempty"`
	Title           string   `json:"title" validate:"required"`
	Slug            string   `json:"slug,omitempty"`
	Category        string   `json:"category,omitempty"`
	Description     string   `json:"description,omitempty"`
	FullDescription string   `json:"full_description,omitempty"`
	Content         string   `json:"content,omitempty"`
	Status          string   `json:"status,omitempty"`
	Location        string   `json:"location,omitempty"`
	Image           string   `json:"image,omitempty"`
	Activities      []string `json:"activities,omitempty"`
	Stats           []Stat   `json:"stats,omitempty" validate:"dive"`
	Color           string   `json:"color,omitempty"`
}

// Resource is a downloadable report, toolkit or video.
type Resource struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Category    string `json:"category,omitempty"`
	FileURL     string `json:"file_url" validate:"required"`
	FileSize    string `json:"file_size,omitempty"`
	Downloads   string `json:"downloads,omitempty"`
	Date        string `json:"date,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Job is a vacancy on the careers page.
type Job struct {
	ID           int64    `json:"id,omitempty"`
	Title        string   `json:"title" validate:"required"`
	Department   string   `json:"department,omitempty"`
	Location     string   `json:"location,omitempty"`
	Type         string   `json:"type,omitempty"`
	Description  string   `json:"description,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Posted       string   `json:"posted,omitempty"`
	IsActive     bool     `json:"is_active"`
}

// Comment statuses.
const (
	CommentPending  = "pending"
	CommentApproved = "approved"
	CommentRejected = "rejected"
)

// Comment is a reader comment on a post. New comments start pending.
type Comment struct {
	ID        int64  `json:"id,omitempty"`
	Content   string `json:"content" validate:"required,max=5000"`
	Author    string `json:"author" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	PostID    int64  `json:"post_id" validate:"required,gt=0"`
	PostTitle string `json:"post_title,omitempty"`
	Status    string `json:"status,omitempty"`
	Date      string `json:"date,omitempty"`
}

// Announcement is a banner item on the home page.
type Announcement struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Link        string `json:"link,omitempty"`
	Image       string `json:"image,omitempty"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Partner is a partner organisation.
type Partner struct {
	ID      int64  `json:"id,omitempty"`
	Name    string `json:"name" validate:"required"`
	Logo    string `json:"logo,omitempty"`
	Website string `json:"website,omitempty" validate:"omitempty,url"`
}

// Badge is an award shown on the home page.
type Badge struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

// User is a CMS account. Password is only ever sent, never returned.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=user technical admin"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6"`
}

// UserUpdate changes only its non-empty fields.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=user technical admin"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6"`
}

// AuditLog records an admin action.
type AuditLog struct {
	ID        int64  `json:"id,omitempty"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserRole  string `json:"user_role"`
	IPAddress string `json:"ip_address,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HeroContent is the editable banner at the top of a page.
type HeroContent struct {
	ID              int64  `json:"id,omitempty"`
	Page            string `json:"page" validate:"required"`
	Title           string `json:"title,omitempty"`
	TitleHighlight  string `json:"title_highlight,omitempty"`
	Description     string `json:"description,omitempty"`
	CTAText         string `json:"cta_text,omitempty"`
	CTALink         string `json:"cta_link,omitempty"`
	SecondCTAText   string `json:"second_cta_text,omitempty"`
	SecondCTALink   string `json:"second_cta_link,omitempty"`
	BackgroundImage string `json:"background_image,omitempty"`
}

// DashboardStats are the admin dashboard counters.
type DashboardStats struct {
	Users       int `json:"users"`
	Blogs       int `json:"blogs"`
	News        int `json:"news"`
	Subscribers int `json:"subscribers"`
}

// SubscriberAnalytics summarises newsletter subscriptions.
type SubscriberAnalytics struct {
	TotalActive       int            `json:"total_active"`
	TotalUnsubscribed int            `json:"total_unsubscribed"`
	NewThisWeek       int            `json:"new_this_week"`
	TopicBreakdown    map[string]int `json:"topic_breakdown"`
}

// ContactMessage is a public contact form submission.
type ContactMessage struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Subscription is a newsletter sign-up.
type Subscription struct {
	Email         string   `json:"email" validate:"required,email"`
	Subscriptions []string `json:"subscriptions,omitempty"`
}

// Signup is a self-service registration. New accounts get the user role.
type Signup struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginUser is the account summary returned by the login endpoint.
type LoginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// message is the acknowledgement body of fire-and-forget endpoints.
type message struct {
	Message string `json:"message"`
}

package model

type Location struct {
	ID       string  `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name"`
	Slug     string  `json:"slug" bson:"slug"`
	Canton   string  `json:"canton" bson:"canton"`
	Lat      float64 `json:"lat" bson:"lat"`
	Lng      float64 `json:"lng" bson:"lng"`
	Timezone string  `json:"timezone" bson:"timezone"`
}
